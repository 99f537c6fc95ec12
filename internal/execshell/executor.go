package execshell

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	logFieldCommandConstant          = "command"
	logFieldWorkingDirectoryConstant = "working_directory"
	logFieldExitCodeConstant         = "exit_code"
	logFieldTimeoutConstant          = "timeout"
)

// ShellExecutor runs commands under a deadline and logs their lifecycle.
type ShellExecutor struct {
	logger         *zap.Logger
	runner         CommandRunner
	defaultTimeout time.Duration
	formatter      CommandMessageFormatter
}

// NewShellExecutor validates collaborators and constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, defaultTimeout time.Duration) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if defaultTimeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	return &ShellExecutor{logger: logger, runner: runner, defaultTimeout: defaultTimeout}, nil
}

// WithLogger returns a copy of the executor that logs to the provided logger.
func (executor *ShellExecutor) WithLogger(logger *zap.Logger) *ShellExecutor {
	if logger == nil {
		return executor
	}
	duplicated := *executor
	duplicated.logger = logger
	return &duplicated
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// Execute announces, runs, and classifies the outcome of a command.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	timeout := command.Details.Timeout
	if timeout <= 0 {
		timeout = executor.defaultTimeout
	}

	commandLine := executor.formatter.FormatCommandLine(command)
	executor.logger.Info(
		executor.formatter.BuildStartedMessage(command),
		zap.String(logFieldCommandConstant, commandLine),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)

	deadlineContext, cancel := context.WithTimeout(executionContext, timeout)
	defer cancel()

	result, runError := executor.runner.Run(deadlineContext, command)

	if errors.Is(deadlineContext.Err(), context.DeadlineExceeded) && executionContext.Err() == nil {
		timeoutError := CommandTimeoutError{Command: command, Timeout: timeout}
		executor.logger.Warn(timeoutError.Error(), zap.String(logFieldCommandConstant, commandLine), zap.Duration(logFieldTimeoutConstant, timeout))
		return ExecutionResult{}, timeoutError
	}

	if executionContext.Err() != nil {
		runError = executionContext.Err()
	}

	if runError != nil {
		executionError := CommandExecutionError{Command: command, Cause: runError}
		executor.logger.Warn(executionError.Error(), zap.String(logFieldCommandConstant, commandLine))
		return ExecutionResult{}, executionError
	}

	if result.ExitCode != 0 {
		failedError := CommandFailedError{Command: command, Result: result}
		executor.logger.Warn(failedError.Error(), zap.String(logFieldCommandConstant, commandLine), zap.Int(logFieldExitCodeConstant, result.ExitCode))
		return ExecutionResult{}, failedError
	}

	executor.logger.Debug(executor.formatter.BuildSuccessMessage(command), zap.String(logFieldCommandConstant, commandLine))
	return result, nil
}
