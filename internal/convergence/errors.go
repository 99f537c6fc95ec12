package convergence

import (
	"errors"
	"fmt"
)

const (
	executorNotConfiguredMessageConstant       = "convergence: git executor not configured"
	inspectorNotConfiguredMessageConstant      = "convergence: checkout inspector not configured"
	pushConfigurerNotConfiguredMessageConstant = "convergence: push configurer not configured"
	fileSystemNotConfiguredMessageConstant     = "convergence: file system not configured"
	depsDirectoryMissingMessageConstant        = "convergence: deps directory must be provided"
	checkoutConflictTemplateConstant           = "%s exists but is not a git checkout and is not empty; move it aside so it can be cloned"
	checkoutConflictCauseTemplateConstant      = "%s exists but cannot be inspected: %v"
)

var (
	// ErrExecutorNotConfigured indicates a nil git executor was supplied.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrInspectorNotConfigured indicates a nil checkout inspector was supplied.
	ErrInspectorNotConfigured = errors.New(inspectorNotConfiguredMessageConstant)
	// ErrPushConfigurerNotConfigured indicates a nil push configurer was supplied.
	ErrPushConfigurerNotConfigured = errors.New(pushConfigurerNotConfiguredMessageConstant)
	// ErrFileSystemNotConfigured indicates a nil file system was supplied.
	ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
	// ErrDepsDirectoryMissing indicates an empty deps directory was supplied.
	ErrDepsDirectoryMissing = errors.New(depsDirectoryMissingMessageConstant)
)

// CheckoutConflictError reports a destination that is neither absent, empty, nor a git checkout.
// The engine never deletes such a directory.
type CheckoutConflictError struct {
	Path  string
	Cause error
}

// Error describes the conflicting destination.
func (conflict CheckoutConflictError) Error() string {
	if conflict.Cause != nil {
		return fmt.Sprintf(checkoutConflictCauseTemplateConstant, conflict.Path, conflict.Cause)
	}
	return fmt.Sprintf(checkoutConflictTemplateConstant, conflict.Path)
}

// Unwrap exposes the inspection failure, if any.
func (conflict CheckoutConflictError) Unwrap() error {
	return conflict.Cause
}
