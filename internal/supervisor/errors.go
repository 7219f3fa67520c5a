package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// LaunchError is a failure to start a service process.
type LaunchError struct {
	// Service is the name of the service that failed.
	Service string
	// Op is the step that failed: "prepare" or "start".
	Op string
	// Err is the underlying error.
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s %q: %v", e.Op, e.Service, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

const (
	// ExitCodeNotFound is recorded when the executable cannot be run at all.
	ExitCodeNotFound = 127
	// ExitCodeFailed is recorded for any other launch failure.
	ExitCodeFailed = 1
)

// exitCode maps a finished (or never started) process to an exit code.
// Processes killed by a signal report -1.
func exitCode(state *os.ProcessState, err error) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
		return ExitCodeNotFound
	}
	return ExitCodeFailed
}
