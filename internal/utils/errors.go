package utils

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Wrap them in an AppError and test with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDatasetLoad     = errors.New("dataset load failed")
	ErrMissingAPIKey   = errors.New("missing api key")
	ErrEnvFileNotFound = errors.New("env file not found")
	ErrClientInit      = errors.New("inference client initialisation failed")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// DatasetLoadError marks err as a dataset or corpus load failure for op. Both
// ErrDatasetLoad and the chain of err stay reachable through errors.Is and errors.As.
func DatasetLoadError(op string, err error) error {
	if err == nil {
		return NewAppError(op, "load failed", ErrDatasetLoad)
	}
	return NewAppError(op, "load failed", fmt.Errorf("%w: %w", ErrDatasetLoad, err))
}
