package execshell

import (
	"context"
	"time"
)

const (
	gitCommandNameConstant = "git"
)

// CommandName identifies an executable known to the executor.
type CommandName string

// CommandGit invokes the git binary.
const CommandGit CommandName = CommandName(gitCommandNameConstant)

// CommandDetails describes the arguments and execution environment of a command.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	// LogArguments replaces Arguments in every rendered message when set.
	LogArguments []string
	// SensitiveValues are masked wherever they appear in rendered messages.
	SensitiveValues []string
	// Timeout overrides the executor default when positive.
	Timeout time.Duration
}

// ShellCommand couples an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes a shell command and reports its result.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// NonInteractiveGitEnvironment disables every interactive credential prompt so git fails fast instead of hanging.
func NonInteractiveGitEnvironment() map[string]string {
	return map[string]string{
		"GIT_TERMINAL_PROMPT": "0",
		"GIT_ASKPASS":         "/bin/true",
	}
}
