package manifest

import "fmt"

const (
	loadErrorTemplateConstant          = "manifest %s: %s"
	loadErrorWithCauseTemplateConstant = "manifest %s: %s: %v"
)

// LoadError reports a manifest that could not be read, parsed, or validated.
type LoadError struct {
	Path   string
	Reason string
	Cause  error
}

// Error describes the load failure.
func (loadError LoadError) Error() string {
	if loadError.Cause != nil {
		return fmt.Sprintf(loadErrorWithCauseTemplateConstant, loadError.Path, loadError.Reason, loadError.Cause)
	}
	return fmt.Sprintf(loadErrorTemplateConstant, loadError.Path, loadError.Reason)
}

// Unwrap exposes the underlying cause.
func (loadError LoadError) Unwrap() error {
	return loadError.Cause
}
