package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

// CSVProvider loads CIC-IDS2017 style CSV exports from a directory.
type CSVProvider struct {
	dir    string
	sample int
	logger *slog.Logger
}

// NewCSVProvider reads every *.csv file in dir.
func NewCSVProvider(dir string, sample int, logger *slog.Logger) *CSVProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVProvider{dir: dir, sample: sample, logger: logger}
}

// Load concatenates all CSV files in name order and prepares the result.
func (p *CSVProvider) Load(ctx context.Context) (Table, error) {
	info, err := os.Stat(p.dir)
	if err != nil {
		return Table{}, utils.DatasetLoadError("dataset.csv", err)
	}
	if !info.IsDir() {
		return Table{}, utils.DatasetLoadError("dataset.csv", fmt.Errorf("%s is not a directory", p.dir))
	}

	files, err := filepath.Glob(filepath.Join(p.dir, "*.csv"))
	if err != nil {
		return Table{}, utils.DatasetLoadError("dataset.csv", err)
	}
	if len(files) == 0 {
		return Table{}, utils.DatasetLoadError("dataset.csv", fmt.Errorf("no csv files in %s", p.dir))
	}
	sort.Strings(files)

	var combined Table
	loaded := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return Table{}, err
		}
		table, err := readCSV(file, combined.Len())
		if err != nil {
			p.logger.Warn("skipping csv file", slog.String("file", file), slog.Any("error", err))
			continue
		}
		p.logger.Info("csv file loaded", slog.String("file", filepath.Base(file)), slog.Int("rows", table.Len()))
		combined = appendTable(combined, table)
		loaded++
	}
	if loaded == 0 {
		return Table{}, utils.DatasetLoadError("dataset.csv", errors.New("no csv file could be read"))
	}

	prepared, err := Prepare(combined, p.sample, p.logger)
	if err != nil {
		return Table{}, utils.DatasetLoadError("dataset.csv", err)
	}
	return prepared, nil
}

func readCSV(path string, offset int) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, errors.New("empty file")
		}
		return Table{}, fmt.Errorf("read header: %w", err)
	}

	table := Table{Columns: append([]string(nil), header...)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read row %d: %w", table.Len()+1, err)
		}
		values := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				values[col] = ParseCell(record[i])
			} else {
				values[col] = nil
			}
		}
		table.Rows = append(table.Rows, Row{Index: offset + table.Len(), Values: values})
	}
	return table, nil
}

// appendTable concatenates rows; columns are the union in first-seen order.
func appendTable(dst, src Table) Table {
	for _, c := range src.Columns {
		if !dst.HasColumn(c) {
			dst.Columns = append(dst.Columns, c)
		}
	}
	dst.Rows = append(dst.Rows, src.Rows...)
	return dst
}

func parseFloat(value string) (float64, bool) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
