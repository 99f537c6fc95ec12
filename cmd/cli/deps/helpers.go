package deps

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/batch"
	"github.com/temirov/reposync/internal/settings"
	pathutils "github.com/temirov/reposync/internal/utils/path"
)

const (
	manifestFlagNameConstant              = "manifest"
	manifestFlagUsageConstant             = "Manifest file listing the repositories (TOML or YAML), relative to --root"
	depsDirectoryFlagNameConstant         = "deps-dir"
	depsDirectoryFlagUsageConstant        = "Directory that receives the checkouts, relative to --root"
	rootFlagNameConstant                  = "root"
	rootFlagUsageConstant                 = "Workspace root directory"
	workingDirectoryErrorTemplateConstant = "unable to determine working directory: %w"
	resolvePathErrorTemplateConstant      = "unable to resolve %s path %q: %w"
	invalidSettingsErrorTemplateConstant  = "invalid settings: %w"
	runtimeMessageTemplateConstant        = "Runtime: %s"
	rootMessageTemplateConstant           = "Root: %s"
	manifestMessageTemplateConstant       = "Manifest: %s"
	depsDirectoryMessageTemplateConstant  = "Deps dir: %s"
	tunablesMessageTemplateConstant       = "Timeout: %s | Depth: %d | Partial: %t"
	localWorkMessageTemplateConstant      = "Preserve local: %t | Push URL: %t | Workers: %d"
	rootPathLabelConstant                 = "root"
	manifestPathLabelConstant             = "manifest"
	depsDirectoryPathLabelConstant        = "deps"
	logFieldGoVersionConstant             = "go_version"
	logFieldPushTokenSourcesConstant      = "push_token_sources"
	secondsPerTimeoutUnitConstant         = time.Second
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// LoggerBuilderProvider yields the builder used for per-repository log groups.
type LoggerBuilderProvider func() batch.LoggerBuilder

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveLoggerBuilder(provider LoggerBuilderProvider) batch.LoggerBuilder {
	if provider == nil {
		return nil
	}
	return provider()
}

func resolveConfiguration(provider func() CommandConfiguration) CommandConfiguration {
	if provider == nil {
		return DefaultCommandConfiguration()
	}
	return provider().Sanitize()
}

func bindLocationFlags(command *cobra.Command) {
	command.Flags().String(manifestFlagNameConstant, "", manifestFlagUsageConstant)
	command.Flags().String(depsDirectoryFlagNameConstant, "", depsDirectoryFlagUsageConstant)
	command.Flags().String(rootFlagNameConstant, "", rootFlagUsageConstant)
}

func applyLocationFlags(command *cobra.Command, configuration CommandConfiguration) CommandConfiguration {
	if command.Flags().Changed(manifestFlagNameConstant) {
		configuration.Manifest, _ = command.Flags().GetString(manifestFlagNameConstant)
	}
	if command.Flags().Changed(depsDirectoryFlagNameConstant) {
		configuration.DepsDirectory, _ = command.Flags().GetString(depsDirectoryFlagNameConstant)
	}
	if command.Flags().Changed(rootFlagNameConstant) {
		configuration.Root, _ = command.Flags().GetString(rootFlagNameConstant)
	}
	return configuration.Sanitize()
}

// buildSettings resolves paths and converts configuration into validated run settings.
// The root is anchored to workingDirectory; manifest and deps directory are anchored to the root.
func buildSettings(configuration CommandConfiguration, resolver *pathutils.Resolver, workingDirectory string) (settings.Settings, error) {
	if len(workingDirectory) == 0 {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return settings.Settings{}, fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}
	if resolver == nil {
		resolver = pathutils.NewResolver(nil)
	}

	rootDirectory, rootError := resolver.ResolveUnder(workingDirectory, configuration.Root)
	if rootError != nil {
		return settings.Settings{}, fmt.Errorf(resolvePathErrorTemplateConstant, rootPathLabelConstant, configuration.Root, rootError)
	}
	manifestPath, manifestError := resolver.ResolveUnder(rootDirectory, configuration.Manifest)
	if manifestError != nil {
		return settings.Settings{}, fmt.Errorf(resolvePathErrorTemplateConstant, manifestPathLabelConstant, configuration.Manifest, manifestError)
	}
	depsDirectory, depsError := resolver.ResolveUnder(rootDirectory, configuration.DepsDirectory)
	if depsError != nil {
		return settings.Settings{}, fmt.Errorf(resolvePathErrorTemplateConstant, depsDirectoryPathLabelConstant, configuration.DepsDirectory, depsError)
	}

	runSettings := settings.Settings{
		RootDirectory:    rootDirectory,
		ManifestPath:     manifestPath,
		DepsDirectory:    depsDirectory,
		GitTimeout:       time.Duration(configuration.GitTimeoutSeconds) * secondsPerTimeoutUnitConstant,
		CloneDepth:       configuration.CloneDepth,
		UsePartialClone:  configuration.UsePartialClone,
		PreserveLocal:    configuration.PreserveLocal,
		ConfigurePushURL: configuration.ConfigurePushURL,
		PushTokenSources: append([]string(nil), configuration.PushTokenSources...),
		Workers:          configuration.Workers,
	}
	if validationError := runSettings.Validate(); validationError != nil {
		return settings.Settings{}, fmt.Errorf(invalidSettingsErrorTemplateConstant, validationError)
	}
	return runSettings, nil
}

func logStartDiagnostics(logger *zap.Logger, runSettings settings.Settings) {
	logger.Info(fmt.Sprintf(runtimeMessageTemplateConstant, runtime.Version()), zap.String(logFieldGoVersionConstant, runtime.Version()))
	logger.Info(fmt.Sprintf(rootMessageTemplateConstant, runSettings.RootDirectory))
	logger.Info(fmt.Sprintf(manifestMessageTemplateConstant, runSettings.ManifestPath))
	logger.Info(fmt.Sprintf(depsDirectoryMessageTemplateConstant, runSettings.DepsDirectory))
	logger.Info(fmt.Sprintf(tunablesMessageTemplateConstant, runSettings.GitTimeout, runSettings.CloneDepth, runSettings.UsePartialClone))
	logger.Info(
		fmt.Sprintf(localWorkMessageTemplateConstant, runSettings.PreserveLocal, runSettings.ConfigurePushURL, runSettings.Workers),
		zap.Strings(logFieldPushTokenSourcesConstant, runSettings.PushTokenSources),
	)
}
