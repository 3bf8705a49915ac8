package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
)

func TestAppErrorKinds(t *testing.T) {
	err := fmt.Errorf("load flows: %w", DatasetLoadError("dataset.csv", errors.New("no csv files")))
	if !errors.Is(err, ErrDatasetLoad) {
		t.Fatalf("expected dataset load kind, got %v", err)
	}
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Op != "dataset.csv" {
		t.Fatalf("expected AppError with op, got %v", err)
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unexpected invalid argument kind")
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := NewAppError("segment", "max size must be positive", nil)
	if err.Error() != "segment: max size must be positive" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDatasetLoadErrorKeepsCauseChain(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/a/corpus")
	err := DatasetLoadError("corpus.Units", statErr)
	if !errors.Is(err, ErrDatasetLoad) {
		t.Fatalf("expected dataset load kind, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist to stay reachable, got %v", err)
	}
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) || pathErr.Path != "/definitely/not/a/corpus" {
		t.Fatalf("expected the PathError of the cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "/definitely/not/a/corpus") {
		t.Fatalf("expected the cause in the message, got %q", err.Error())
	}
}
