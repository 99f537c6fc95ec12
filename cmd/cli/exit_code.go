package cli

import (
	"errors"

	"github.com/temirov/reposync/cmd/cli/deps"
	"github.com/temirov/reposync/internal/batch"
	"github.com/temirov/reposync/internal/manifest"
)

const exitCodeGeneralFailureConstant = 1

// ExitCode maps an Execute error to the process exit status:
// 0 on success, 2 when the manifest could not be loaded, 4 when some repositories failed, and 1 otherwise.
func ExitCode(executionError error) int {
	if executionError == nil {
		return batch.ExitCodeSuccess
	}

	var loadError manifest.LoadError
	if errors.As(executionError, &loadError) {
		return batch.ExitCodeManifestError
	}

	var partialFailure deps.PartialFailureError
	if errors.As(executionError, &partialFailure) {
		return partialFailure.ExitCode()
	}

	return exitCodeGeneralFailureConstant
}
