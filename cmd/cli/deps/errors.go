package deps

import (
	"fmt"

	"github.com/temirov/reposync/internal/batch"
)

const partialFailureTemplateConstant = "%d of %d repositories failed to synchronize"

// PartialFailureError reports a sync run in which at least one repository failed.
type PartialFailureError struct {
	Report batch.Report
}

func (failure PartialFailureError) Error() string {
	return fmt.Sprintf(partialFailureTemplateConstant, len(failure.Report.Failures), len(failure.Report.Processed))
}

// ExitCode returns the process exit status for the run.
func (failure PartialFailureError) ExitCode() int {
	return failure.Report.ExitCode()
}
