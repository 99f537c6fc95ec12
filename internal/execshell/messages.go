package execshell

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RedactionMask replaces sensitive values in every rendered command message.
const RedactionMask = "****"

const (
	startedMessageTemplateConstant          = "+ %s%s"
	completedMessageTemplateConstant        = "Completed %s%s"
	failureMessageTemplateConstant          = "%s%s failed with exit code %d%s"
	timeoutMessageTemplateConstant          = "%s%s timed out after %s"
	executionFailureMessageTemplateConstant = "%s%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (cwd=%s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	commandArgumentsJoinSeparatorConstant   = " "
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
)

// CommandMessageFormatter builds human-readable, redacted messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the single line announced before a command runs.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return fmt.Sprintf(startedMessageTemplateConstant, formatter.FormatCommandLine(command), formatter.workingDirectorySuffix(command))
}

// BuildSuccessMessage formats the message describing a command that exited with status zero.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return fmt.Sprintf(completedMessageTemplateConstant, formatter.FormatCommandLine(command), formatter.workingDirectorySuffix(command))
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	standardErrorSuffix := emptyStringConstant
	trimmedStandardError := strings.TrimSpace(result.StandardError)
	if len(trimmedStandardError) > 0 {
		standardErrorSuffix = fmt.Sprintf(standardErrorSuffixTemplateConstant, formatter.Redact(command, trimmedStandardError))
	}
	return fmt.Sprintf(failureMessageTemplateConstant, formatter.FormatCommandLine(command), formatter.workingDirectorySuffix(command), result.ExitCode, standardErrorSuffix)
}

// BuildTimeoutMessage formats the message describing a command that exceeded its deadline.
func (formatter CommandMessageFormatter) BuildTimeoutMessage(command ShellCommand, timeout time.Duration) string {
	return fmt.Sprintf(timeoutMessageTemplateConstant, formatter.FormatCommandLine(command), formatter.workingDirectorySuffix(command), timeout)
}

// BuildExecutionFailureMessage formats the message describing a failure to run the command at all.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = formatter.Redact(command, failure.Error())
	}
	return fmt.Sprintf(executionFailureMessageTemplateConstant, formatter.FormatCommandLine(command), formatter.workingDirectorySuffix(command), failureMessage)
}

// FormatCommandLine renders the executable and its arguments, preferring the redacted variant.
func (formatter CommandMessageFormatter) FormatCommandLine(command ShellCommand) string {
	arguments := command.Details.Arguments
	if len(command.Details.LogArguments) > 0 {
		arguments = command.Details.LogArguments
	}
	commandParts := append([]string{string(command.Name)}, arguments...)
	return formatter.Redact(command, strings.Join(commandParts, commandArgumentsJoinSeparatorConstant))
}

// Redact masks every sensitive value of the command found in text.
func (formatter CommandMessageFormatter) Redact(command ShellCommand, text string) string {
	sensitiveValues := make([]string, 0, len(command.Details.SensitiveValues))
	for _, sensitiveValue := range command.Details.SensitiveValues {
		if len(sensitiveValue) == 0 {
			continue
		}
		sensitiveValues = append(sensitiveValues, sensitiveValue)
	}
	// Longer values first so an escaped form is not partially masked by its raw prefix.
	sort.SliceStable(sensitiveValues, func(leftIndex int, rightIndex int) bool {
		return len(sensitiveValues[leftIndex]) > len(sensitiveValues[rightIndex])
	})

	redacted := text
	for _, sensitiveValue := range sensitiveValues {
		redacted = strings.ReplaceAll(redacted, sensitiveValue, RedactionMask)
	}
	return redacted
}

func (formatter CommandMessageFormatter) workingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}
