package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

func TestLabelFromName(t *testing.T) {
	cases := []struct {
		name      string
		malicious bool
		ok        bool
	}{
		{"ssh_MALICIOUS_01.txt", true, true},
		{"auth-malicious.txt", true, true},
		{"Benign_session.txt", false, true},
		{"unlabelled.txt", false, false},
	}
	for _, tc := range cases {
		malicious, ok := LabelFromName(tc.name)
		if malicious != tc.malicious || ok != tc.ok {
			t.Fatalf("LabelFromName(%q) = %v,%v want %v,%v", tc.name, malicious, ok, tc.malicious, tc.ok)
		}
	}
}

func TestUnitsWalksRecursivelyInOrder(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "b_BENIGN.txt"), "b")
	mustWrite(t, filepath.Join(root, "nested", "a_MALICIOUS.txt"), "a")
	mustWrite(t, filepath.Join(root, "nested", "ignore.log"), "x")
	mustWrite(t, filepath.Join(root, "a_BENIGN.TXT"), "c")

	units, err := NewProvider(root, utils.DiscardLogger()).Units()
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 text units, got %d", len(units))
	}
	for i := 1; i < len(units); i++ {
		if units[i-1].Path > units[i].Path {
			t.Fatalf("units not sorted: %v", units)
		}
	}
}

func TestReadUnreadableReturnsEmpty(t *testing.T) {
	p := NewProvider(t.TempDir(), utils.DiscardLogger())
	if got := p.Read(Unit{Path: filepath.Join(t.TempDir(), "missing.txt")}); got != "" {
		t.Fatalf("expected empty content, got %q", got)
	}
}

func TestUnitsMissingRoot(t *testing.T) {
	_, err := NewProvider(filepath.Join(t.TempDir(), "nope"), utils.DiscardLogger()).Units()
	if !errors.Is(err, utils.ErrDatasetLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func mustWrite(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
