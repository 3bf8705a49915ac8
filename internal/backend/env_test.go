package backend

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

func TestLoadEnvMissingExplicitFile(t *testing.T) {
	err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	if !errors.Is(err, utils.ErrEnvFileNotFound) {
		t.Fatalf("expected ErrEnvFileNotFound, got %v", err)
	}
}

func TestLoadEnvReadsKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	os.Unsetenv(APIKeyEnv)

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(APIKeyEnv+"=sk-from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key, err := APIKey()
	if err != nil || key != "sk-from-file" {
		t.Fatalf("expected key from file, got %q (%v)", key, err)
	}
}
