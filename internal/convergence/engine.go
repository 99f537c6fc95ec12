// Package convergence brings a single manifest entry's checkout in line with its remote ref.
package convergence

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/filesystem"
	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/settings"
)

const (
	gitCloneSubcommandConstant            = "clone"
	gitPartialCloneFilterConstant         = "--filter=blob:none"
	gitSingleBranchFlagConstant           = "--single-branch"
	gitBranchFlagConstant                 = "--branch"
	gitRemoteSubcommandConstant           = "remote"
	gitSetURLSubcommandConstant           = "set-url"
	gitFetchSubcommandConstant            = "fetch"
	gitPruneFlagConstant                  = "--prune"
	gitResetSubcommandConstant            = "reset"
	gitHardFlagConstant                   = "--hard"
	gitCleanSubcommandConstant            = "clean"
	gitCleanEverythingFlagConstant        = "-ffdx"
	gitSubmoduleSubcommandConstant        = "submodule"
	gitSyncSubcommandConstant             = "sync"
	gitUpdateSubcommandConstant           = "update"
	gitInitFlagConstant                   = "--init"
	gitRecursiveFlagConstant              = "--recursive"
	originRemoteNameConstant              = "origin"
	remoteTrackingRefTemplateConstant     = "origin/%s"
	forcedFetchRefspecTemplateConstant    = "+%s:refs/remotes/origin/%s"
	temporaryClonePatternTemplateConstant = ".%s.clone-*"
	temporaryClonePrefixTemplateConstant  = ".%s.clone-"
	staleCloneRemovedMessageConstant      = "Removed stale temporary clone"
	bannerMessageTemplateConstant         = "=== %s @ %s ==="
	completedMessageTemplateConstant      = "=== OK %s ==="
	preserveMessageTemplateConstant       = "Skipping reset/clean for %s (preserve local work)"
	submodulesMessageTemplateConstant     = "--- submodules: %s ---"
	replaceEmptyMessageTemplateConstant   = "Replacing empty directory %s with a fresh clone"
	cleanupFailedMessageConstant          = "unable to remove temporary clone directory"
	prepareDepsTemplateConstant           = "prepare deps directory %s: %w"
	prepareCloneTemplateConstant          = "prepare temporary clone for %s: %w"
	removeEmptyTemplateConstant           = "remove empty directory %s: %w"
	publishCloneTemplateConstant          = "move clone of %s into %s: %w"
	preserveReasonSettingConstant         = "preserve-local enabled"
	preserveReasonDirtyConstant           = "working tree has local changes"
	logFieldRepositoryConstant            = "repository"
	logFieldRefConstant                   = "ref"
	logFieldURLConstant                   = "url"
	logFieldDestinationConstant           = "destination"
	logFieldReasonConstant                = "reason"
	logFieldPathConstant                  = "path"
	depsDirectoryPermissionsConstant      = 0o755
)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CheckoutInspector answers read-only questions about a checkout directory.
type CheckoutInspector interface {
	IsVersionControlled(path string) bool
	HasSubRepositories(path string) bool
	IsDirty(executionContext context.Context, path string) bool
}

// PushConfigurer points the push-only remote URL of a checkout at a credential-bearing address.
type PushConfigurer interface {
	Configure(executionContext context.Context, spec manifest.RepoSpec, repositoryPath string) error
}

// Dependencies collects the collaborators of an Engine.
type Dependencies struct {
	Executor       GitExecutor
	Inspector      CheckoutInspector
	PushConfigurer PushConfigurer
	FileSystem     filesystem.FileSystem
	Logger         *zap.Logger
}

// Engine converges checkouts under the deps directory.
type Engine struct {
	configuration  settings.Settings
	executor       GitExecutor
	inspector      CheckoutInspector
	pushConfigurer PushConfigurer
	fileSystem     filesystem.FileSystem
	logger         *zap.Logger
}

// NewEngine validates collaborators and constructs an Engine. configuration.DepsDirectory must already be resolved.
func NewEngine(configuration settings.Settings, dependencies Dependencies) (*Engine, error) {
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if dependencies.Inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if dependencies.PushConfigurer == nil {
		return nil, ErrPushConfigurerNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if len(configuration.DepsDirectory) == 0 {
		return nil, ErrDepsDirectoryMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		configuration:  configuration,
		executor:       dependencies.Executor,
		inspector:      dependencies.Inspector,
		pushConfigurer: dependencies.PushConfigurer,
		fileSystem:     dependencies.FileSystem,
		logger:         logger,
	}, nil
}

// Destination returns the checkout directory of spec.
func (engine *Engine) Destination(spec manifest.RepoSpec) string {
	return filepath.Join(engine.configuration.DepsDirectory, spec.Name)
}

// Ensure clones or updates the checkout of spec, configures its push URL, and synchronizes submodules.
// The first failing step ends processing of this entry; earlier steps are not rolled back.
func (engine *Engine) Ensure(executionContext context.Context, spec manifest.RepoSpec) error {
	destination := engine.Destination(spec)
	engine.logger.Info(
		fmt.Sprintf(bannerMessageTemplateConstant, spec.Name, spec.Ref),
		zap.String(logFieldRepositoryConstant, spec.Name),
		zap.String(logFieldRefConstant, spec.Ref),
		zap.String(logFieldURLConstant, spec.URL),
		zap.String(logFieldDestinationConstant, destination),
	)

	var convergeError error
	if engine.inspector.IsVersionControlled(destination) {
		convergeError = engine.update(executionContext, spec, destination)
	} else {
		convergeError = engine.clone(executionContext, spec, destination)
	}
	if convergeError != nil {
		return convergeError
	}

	if configureError := engine.pushConfigurer.Configure(executionContext, spec, destination); configureError != nil {
		return configureError
	}

	if submoduleError := engine.updateSubmodules(executionContext, spec, destination); submoduleError != nil {
		return submoduleError
	}

	engine.logger.Info(fmt.Sprintf(completedMessageTemplateConstant, spec.Name), zap.String(logFieldRepositoryConstant, spec.Name))
	return nil
}

func (engine *Engine) clone(executionContext context.Context, spec manifest.RepoSpec, destination string) error {
	if preparationError := engine.clearEmptyDestination(destination); preparationError != nil {
		return preparationError
	}

	depsDirectory := engine.configuration.DepsDirectory
	if mkdirError := engine.fileSystem.MkdirAll(depsDirectory, depsDirectoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(prepareDepsTemplateConstant, depsDirectory, mkdirError)
	}

	engine.sweepStaleClones(spec)

	temporaryDirectory, temporaryError := engine.fileSystem.MkdirTemp(depsDirectory, fmt.Sprintf(temporaryClonePatternTemplateConstant, spec.Name))
	if temporaryError != nil {
		return fmt.Errorf(prepareCloneTemplateConstant, spec.Name, temporaryError)
	}

	arguments := []string{gitCloneSubcommandConstant}
	if engine.configuration.UsePartialClone {
		arguments = append(arguments, gitPartialCloneFilterConstant)
	}
	arguments = append(arguments, engine.configuration.DepthArguments()...)
	arguments = append(arguments, gitSingleBranchFlagConstant, gitBranchFlagConstant, spec.Ref, spec.URL, temporaryDirectory)

	// Relative source URLs resolve against the process working directory.
	if _, cloneError := engine.git(executionContext, "", arguments); cloneError != nil {
		engine.discard(temporaryDirectory)
		return cloneError
	}

	if renameError := engine.fileSystem.Rename(temporaryDirectory, destination); renameError != nil {
		engine.discard(temporaryDirectory)
		return fmt.Errorf(publishCloneTemplateConstant, spec.Name, destination, renameError)
	}
	return nil
}

// clearEmptyDestination removes an empty unversioned destination and refuses to touch a populated one.
func (engine *Engine) clearEmptyDestination(destination string) error {
	if !filesystem.Exists(engine.fileSystem, destination) {
		return nil
	}
	entries, readError := engine.fileSystem.ReadDir(destination)
	if readError != nil {
		return CheckoutConflictError{Path: destination, Cause: readError}
	}
	if len(entries) > 0 {
		return CheckoutConflictError{Path: destination}
	}
	engine.logger.Info(fmt.Sprintf(replaceEmptyMessageTemplateConstant, destination), zap.String(logFieldPathConstant, destination))
	if removeError := engine.fileSystem.Remove(destination); removeError != nil {
		return fmt.Errorf(removeEmptyTemplateConstant, destination, removeError)
	}
	return nil
}

// sweepStaleClones removes temporary clone directories of spec left behind by an interrupted run.
func (engine *Engine) sweepStaleClones(spec manifest.RepoSpec) {
	entries, readError := engine.fileSystem.ReadDir(engine.configuration.DepsDirectory)
	if readError != nil {
		return
	}
	prefix := fmt.Sprintf(temporaryClonePrefixTemplateConstant, spec.Name)
	for _, entry := range entries {
		if !isTemporaryCloneName(entry.Name(), prefix) {
			continue
		}
		stalePath := filepath.Join(engine.configuration.DepsDirectory, entry.Name())
		if removeError := engine.fileSystem.RemoveAll(stalePath); removeError != nil {
			engine.logger.Warn(cleanupFailedMessageConstant, zap.String(logFieldPathConstant, stalePath), zap.Error(removeError))
			continue
		}
		engine.logger.Info(staleCloneRemovedMessageConstant, zap.String(logFieldRepositoryConstant, spec.Name), zap.String(logFieldPathConstant, stalePath))
	}
}

// isTemporaryCloneName matches prefix followed by the numeric suffix MkdirTemp generates.
func isTemporaryCloneName(entryName string, prefix string) bool {
	suffix, hasPrefix := strings.CutPrefix(entryName, prefix)
	if !hasPrefix || len(suffix) == 0 {
		return false
	}
	for _, character := range suffix {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}

func (engine *Engine) discard(temporaryDirectory string) {
	if removeError := engine.fileSystem.RemoveAll(temporaryDirectory); removeError != nil {
		engine.logger.Warn(cleanupFailedMessageConstant, zap.String(logFieldPathConstant, temporaryDirectory), zap.Error(removeError))
	}
}

func (engine *Engine) update(executionContext context.Context, spec manifest.RepoSpec, destination string) error {
	if _, setURLError := engine.git(executionContext, destination, []string{gitRemoteSubcommandConstant, gitSetURLSubcommandConstant, originRemoteNameConstant, spec.URL}); setURLError != nil {
		return setURLError
	}

	fetchArguments := []string{gitFetchSubcommandConstant, gitPruneFlagConstant}
	fetchArguments = append(fetchArguments, engine.configuration.DepthArguments()...)
	// The explicit destination keeps origin/<ref> current for tags and for branches outside the clone's fetch rule.
	fetchArguments = append(fetchArguments, originRemoteNameConstant, fmt.Sprintf(forcedFetchRefspecTemplateConstant, spec.Ref, spec.Ref))
	if _, fetchError := engine.git(executionContext, destination, fetchArguments); fetchError != nil {
		return fetchError
	}

	if reason, preserve := engine.preserveReason(executionContext, destination); preserve {
		engine.logger.Info(
			fmt.Sprintf(preserveMessageTemplateConstant, spec.Name),
			zap.String(logFieldRepositoryConstant, spec.Name),
			zap.String(logFieldReasonConstant, reason),
		)
		return nil
	}

	if _, resetError := engine.git(executionContext, destination, []string{gitResetSubcommandConstant, gitHardFlagConstant, fmt.Sprintf(remoteTrackingRefTemplateConstant, spec.Ref)}); resetError != nil {
		return resetError
	}
	_, cleanError := engine.git(executionContext, destination, []string{gitCleanSubcommandConstant, gitCleanEverythingFlagConstant})
	return cleanError
}

func (engine *Engine) preserveReason(executionContext context.Context, destination string) (string, bool) {
	if engine.configuration.PreserveLocal {
		return preserveReasonSettingConstant, true
	}
	if engine.inspector.IsDirty(executionContext, destination) {
		return preserveReasonDirtyConstant, true
	}
	return "", false
}

func (engine *Engine) updateSubmodules(executionContext context.Context, spec manifest.RepoSpec, destination string) error {
	if !engine.inspector.HasSubRepositories(destination) {
		return nil
	}

	engine.logger.Info(fmt.Sprintf(submodulesMessageTemplateConstant, spec.Name), zap.String(logFieldRepositoryConstant, spec.Name))
	if _, syncError := engine.git(executionContext, destination, []string{gitSubmoduleSubcommandConstant, gitSyncSubcommandConstant, gitRecursiveFlagConstant}); syncError != nil {
		return syncError
	}

	updateArguments := []string{gitSubmoduleSubcommandConstant, gitUpdateSubcommandConstant, gitInitFlagConstant, gitRecursiveFlagConstant}
	updateArguments = append(updateArguments, engine.configuration.DepthArguments()...)
	_, updateError := engine.git(executionContext, destination, updateArguments)
	return updateError
}

func (engine *Engine) git(executionContext context.Context, workingDirectory string, arguments []string) (execshell.ExecutionResult, error) {
	return engine.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: execshell.NonInteractiveGitEnvironment(),
	})
}
