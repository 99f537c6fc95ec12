package batch

// Report summarizes a synchronization run.
type Report struct {
	Processed     []string
	Failures      []Failure
	DepsDirectory string
}

// Succeeded reports whether every repository converged.
func (report Report) Succeeded() bool {
	return len(report.Failures) == 0
}

// ExitCode maps the run outcome to the process exit status.
func (report Report) ExitCode() int {
	if report.Succeeded() {
		return ExitCodeSuccess
	}
	return ExitCodePartialFailure
}
