package runner

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRuntimeUnavailable indicates that no interpreter for a language is installed
	ErrRuntimeUnavailable = errors.New("runtime not available")

	// ErrNoRunner indicates that no runner is registered for a language
	ErrNoRunner = errors.New("no runner registered")
)

// RuntimeError reports a runtime whose interpreters could not be found on PATH
type RuntimeError struct {
	Runtime string
	// Tried lists the executables that were looked up
	Tried []string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s runtime environment not installed (looked for %s)", e.Runtime, strings.Join(e.Tried, ", "))
}

// Is matches ErrRuntimeUnavailable
func (e *RuntimeError) Is(target error) bool {
	return target == ErrRuntimeUnavailable
}

// ExitError reports a program that ran but exited unsuccessfully
type ExitError struct {
	Runtime string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s program exited with code %d", e.Runtime, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
