// Package workspace answers read-only questions about local checkouts.
package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/filesystem"
)

const (
	gitMetadataNameConstant                  = ".git"
	subRepositoryDeclarationConstant         = ".gitmodules"
	gitStatusSubcommandConstant              = "status"
	gitStatusPorcelainFlagConstant           = "--porcelain"
	statusFailureTreatedCleanMessageConstant = "working tree status unavailable; treating checkout as clean"
	logFieldRepositoryPathConstant           = "repository_path"
	executorNotConfiguredMessageConstant     = "workspace: git executor not configured"
	fileSystemNotConfiguredMessageConstant   = "workspace: file system not configured"
)

var (
	// ErrExecutorNotConfigured indicates a nil git executor was supplied.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrFileSystemNotConfigured indicates a nil file system was supplied.
	ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Inspector answers local-filesystem questions about a working copy. Every query is side-effect free.
type Inspector struct {
	fileSystem filesystem.FileSystem
	executor   GitExecutor
	logger     *zap.Logger
}

// NewInspector validates collaborators and constructs an Inspector.
func NewInspector(fileSystem filesystem.FileSystem, executor GitExecutor, logger *zap.Logger) (*Inspector, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{fileSystem: fileSystem, executor: executor, logger: logger}, nil
}

// Exists reports whether anything is present at path.
func (inspector *Inspector) Exists(path string) bool {
	return filesystem.Exists(inspector.fileSystem, path)
}

// IsVersionControlled reports whether the git metadata entry exists. Linked worktrees and submodules use a .git file, which also counts.
func (inspector *Inspector) IsVersionControlled(path string) bool {
	return filesystem.Exists(inspector.fileSystem, filepath.Join(path, gitMetadataNameConstant))
}

// HasSubRepositories reports whether a submodule declaration exists at the checkout root.
func (inspector *Inspector) HasSubRepositories(path string) bool {
	return filesystem.Exists(inspector.fileSystem, filepath.Join(path, subRepositoryDeclarationConstant))
}

// IsDirty reports whether git status lists any pending change.
// A failing status query is reported as clean.
func (inspector *Inspector) IsDirty(executionContext context.Context, path string) bool {
	result, statusError := inspector.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant},
		WorkingDirectory:     path,
		EnvironmentVariables: execshell.NonInteractiveGitEnvironment(),
	})
	if statusError != nil {
		inspector.logger.Warn(statusFailureTreatedCleanMessageConstant, zap.String(logFieldRepositoryPathConstant, path), zap.Error(statusError))
		return false
	}
	return len(strings.TrimSpace(result.StandardOutput)) > 0
}

// Observe gathers every fact needed to classify the checkout at path.
func (inspector *Inspector) Observe(executionContext context.Context, path string) Observation {
	observation := Observation{Exists: inspector.Exists(path)}
	if !observation.Exists {
		return observation
	}
	observation.VersionControlled = inspector.IsVersionControlled(path)
	if !observation.VersionControlled {
		return observation
	}
	observation.HasSubRepositories = inspector.HasSubRepositories(path)
	observation.Dirty = inspector.IsDirty(executionContext, path)
	return observation
}

// Classify observes and classifies the checkout at path.
func (inspector *Inspector) Classify(executionContext context.Context, path string) Classification {
	return ClassifyCheckout(inspector.Observe(executionContext, path))
}
