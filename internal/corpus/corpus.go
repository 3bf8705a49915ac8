// Package corpus enumerates authentication-log files whose names carry their ground truth.
package corpus

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

// Unit is one log file submitted to the pipeline as a whole.
type Unit struct {
	Path string
	Name string
}

// LabelFromName derives ground truth from a file name: MALICIOUS means true, BENIGN
// means false, matched case-insensitively. ok is false when neither appears.
func LabelFromName(name string) (malicious bool, ok bool) {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "MALICIOUS"):
		return true, true
	case strings.Contains(upper, "BENIGN"):
		return false, true
	default:
		return false, false
	}
}

// Provider lists *.txt files below a root directory.
type Provider struct {
	root   string
	logger *slog.Logger
}

// NewProvider constructs a corpus rooted at root.
func NewProvider(root string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{root: root, logger: logger}
}

// Units walks the root recursively and returns the .txt files sorted by path.
func (p *Provider) Units() ([]Unit, error) {
	info, err := os.Stat(p.root)
	if err != nil {
		return nil, utils.DatasetLoadError("corpus.Units", err)
	}
	if !info.IsDir() {
		return nil, utils.DatasetLoadError("corpus.Units", fmt.Errorf("%s is not a directory", p.root))
	}

	var units []Unit
	err = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			p.logger.Warn("skipping unreadable corpus entry", slog.String("path", path), slog.Any("error", walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".txt") {
			return nil
		}
		units = append(units, Unit{Path: path, Name: d.Name()})
		return nil
	})
	if err != nil {
		return nil, utils.DatasetLoadError("corpus.Units", err)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	return units, nil
}

// Read returns the file content, or "" when it cannot be read.
func (p *Provider) Read(u Unit) string {
	data, err := os.ReadFile(u.Path)
	if err != nil {
		p.logger.Warn("log file unreadable", slog.String("path", u.Path), slog.Any("error", err))
		return ""
	}
	return string(data)
}
