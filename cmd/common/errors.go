package common

import "fmt"

// ExitError carries a process exit code through cobra's error return.
// The root command unwraps it and exits with Code.
type ExitError struct {
	Code int
	Err  error
}

// NewExitError wraps err with an exit code.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}

	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}
