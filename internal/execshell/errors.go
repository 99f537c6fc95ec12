package execshell

import (
	"errors"
	"time"
)

const (
	loggerNotConfiguredMessageConstant        = "execshell: logger not configured"
	commandRunnerNotConfiguredMessageConstant = "execshell: command runner not configured"
	invalidTimeoutMessageConstant             = "execshell: default timeout must be positive"
)

var (
	// ErrLoggerNotConfigured indicates a nil logger was supplied.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates a nil runner was supplied.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
	// ErrInvalidTimeout indicates a non-positive default timeout was supplied.
	ErrInvalidTimeout = errors.New(invalidTimeoutMessageConstant)
)

// CommandFailedError reports a command that finished with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failure with redacted arguments.
func (failure CommandFailedError) Error() string {
	return CommandMessageFormatter{}.BuildFailureMessage(failure.Command, failure.Result)
}

// ExitCode returns the process exit status.
func (failure CommandFailedError) ExitCode() int {
	return failure.Result.ExitCode
}

// CommandLine renders the redacted command line that failed.
func (failure CommandFailedError) CommandLine() string {
	return CommandMessageFormatter{}.FormatCommandLine(failure.Command)
}

// CommandTimeoutError reports a command killed after exceeding its deadline.
type CommandTimeoutError struct {
	Command ShellCommand
	Timeout time.Duration
}

// Error describes the timeout with redacted arguments.
func (failure CommandTimeoutError) Error() string {
	return CommandMessageFormatter{}.BuildTimeoutMessage(failure.Command, failure.Timeout)
}

// CommandLine renders the redacted command line that timed out.
func (failure CommandTimeoutError) CommandLine() string {
	return CommandMessageFormatter{}.FormatCommandLine(failure.Command)
}

// CommandExecutionError reports a command that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure with redacted arguments.
func (failure CommandExecutionError) Error() string {
	return CommandMessageFormatter{}.BuildExecutionFailureMessage(failure.Command, failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// CommandLine renders the redacted command line that could not run.
func (failure CommandExecutionError) CommandLine() string {
	return CommandMessageFormatter{}.FormatCommandLine(failure.Command)
}
