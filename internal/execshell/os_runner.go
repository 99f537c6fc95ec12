package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
)

const (
	environmentAssignmentSeparatorConstant = "="
	processWaitDelayConstant               = 5 * time.Second
)

// OSCommandRunner executes commands as child processes of reposync.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run starts the command, waits for it, and captures both output streams.
// A non-zero exit is reported through ExecutionResult.ExitCode; only start and wait failures return an error.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	process := buildProcess(executionContext, command)
	process.Stdout = &standardOutputBuffer
	process.Stderr = &standardErrorBuffer

	exitCode := 0
	if runError := process.Run(); runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		exitCode = exitError.ExitCode()
	}

	return ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		ExitCode:       exitCode,
	}, nil
}

func buildProcess(executionContext context.Context, command ShellCommand) *exec.Cmd {
	process := exec.CommandContext(executionContext, string(command.Name), slices.Clone(command.Details.Arguments)...)
	// Transport helpers such as git-remote-https can outlive a killed git and keep the pipes open.
	process.WaitDelay = processWaitDelayConstant
	if len(command.Details.WorkingDirectory) > 0 {
		process.Dir = command.Details.WorkingDirectory
	}
	if len(command.Details.EnvironmentVariables) > 0 {
		process.Env = MergeEnvironment(os.Environ(), command.Details.EnvironmentVariables)
	}
	return process
}

// MergeEnvironment returns inherited with every overlay key replaced or appended. Appended keys are sorted.
func MergeEnvironment(inherited []string, overlay map[string]string) []string {
	merged := make([]string, 0, len(inherited)+len(overlay))
	for _, assignment := range inherited {
		key, _, _ := strings.Cut(assignment, environmentAssignmentSeparatorConstant)
		if _, overridden := overlay[key]; overridden {
			continue
		}
		merged = append(merged, assignment)
	}

	overlayKeys := make([]string, 0, len(overlay))
	for key := range overlay {
		overlayKeys = append(overlayKeys, key)
	}
	slices.Sort(overlayKeys)
	for _, key := range overlayKeys {
		merged = append(merged, key+environmentAssignmentSeparatorConstant+overlay[key])
	}
	return merged
}
