package batch

import (
	"errors"
	"fmt"

	"github.com/temirov/reposync/internal/execshell"
)

// Process exit codes reported for a synchronization run.
const (
	ExitCodeSuccess        = 0
	ExitCodeManifestError  = 2
	ExitCodePartialFailure = 4
)

const (
	unexpectedDetailTemplateConstant = "%T: %v"
	panicDetailTemplateConstant      = "panic: %v"
	failureSummaryTemplateConstant   = "%s [%s]: %s"
)

// FailureKind enumerates how a single repository failed.
type FailureKind string

// Failure kinds recorded by the driver.
const (
	FailureKindTimeout       FailureKind = FailureKind("Timeout")
	FailureKindCommandFailed FailureKind = FailureKind("CommandFailed")
	FailureKindUnexpected    FailureKind = FailureKind("Unexpected")
)

// Failure records why one repository could not be synchronized.
type Failure struct {
	RepositoryName string
	Kind           FailureKind
	Detail         string
	Command        string
	ExitCode       int
}

// String renders the failure for the end-of-run summary.
func (failure Failure) String() string {
	return fmt.Sprintf(failureSummaryTemplateConstant, failure.RepositoryName, failure.Kind, failure.Detail)
}

type commandLineCarrier interface {
	CommandLine() string
}

// ClassifyFailure converts an error returned for repositoryName into a Failure.
func ClassifyFailure(repositoryName string, failureError error) Failure {
	failure := Failure{RepositoryName: repositoryName, Detail: failureError.Error()}

	var carrier commandLineCarrier
	if errors.As(failureError, &carrier) {
		failure.Command = carrier.CommandLine()
	}

	var timeoutError execshell.CommandTimeoutError
	var commandError execshell.CommandFailedError
	switch {
	case errors.As(failureError, &timeoutError):
		failure.Kind = FailureKindTimeout
	case errors.As(failureError, &commandError):
		failure.Kind = FailureKindCommandFailed
		failure.ExitCode = commandError.ExitCode()
	default:
		failure.Kind = FailureKindUnexpected
		failure.Detail = fmt.Sprintf(unexpectedDetailTemplateConstant, rootCause(failureError), failureError)
	}
	return failure
}

func panicFailure(repositoryName string, recovered any) Failure {
	return Failure{
		RepositoryName: repositoryName,
		Kind:           FailureKindUnexpected,
		Detail:         fmt.Sprintf(panicDetailTemplateConstant, recovered),
	}
}

func rootCause(failureError error) error {
	for {
		unwrapped := errors.Unwrap(failureError)
		if unwrapped == nil {
			return failureError
		}
		failureError = unwrapped
	}
}
