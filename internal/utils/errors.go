package utils

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks collaborator contract violations: malformed call
// arguments rather than noisy record data.
var ErrInvalidInput = errors.New("invalid input")

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

// InvalidInput constructs an AppError wrapping ErrInvalidInput.
func InvalidInput(op, format string, args ...any) error {
	return &AppError{Op: op, Msg: fmt.Sprintf(format, args...), Err: ErrInvalidInput}
}

// IsInvalidInput reports whether err stems from a contract violation.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
