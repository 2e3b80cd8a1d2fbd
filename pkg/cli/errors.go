package cli

import (
	"errors"
	"fmt"
)

// Process exit codes shared by all commands.
const (
	// ExitOK means the command succeeded.
	ExitOK = 0
	// ExitFailure covers command failures: lint errors, failed
	// verification, store errors.
	ExitFailure = 1
	// ExitUsage covers bad flags, bad arguments and unusable config.
	ExitUsage = 2
)

// CommandError wraps a failure with the command that produced it.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitError forces a specific process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError wraps err so ExitCode reports the given code.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{
		Code: code,
		Err:  err,
	}
}

// ExitCode maps a command error to the process exit code. A nil error is
// ExitOK; an ExitError anywhere in the chain decides the code; everything
// else is ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
