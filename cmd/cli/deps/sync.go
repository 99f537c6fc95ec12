package deps

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/batch"
	"github.com/temirov/reposync/internal/convergence"
	"github.com/temirov/reposync/internal/credentials"
	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/filesystem"
	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/settings"
	"github.com/temirov/reposync/internal/utils/flags"
	pathutils "github.com/temirov/reposync/internal/utils/path"
	"github.com/temirov/reposync/internal/workspace"
)

const (
	syncCommandUseConstant                  = "sync"
	syncCommandShortDescriptionConstant     = "Clone or update every manifest repository"
	syncCommandLongDescriptionConstant      = "sync converges each repository listed in the manifest into <root>/<deps-dir>/<name>, isolating per-repository failures and exiting 4 when any repository could not be synchronized."
	preserveLocalFlagNameConstant           = "preserve-local"
	preserveLocalFlagUsageConstant          = "Skip reset and clean so local commits and edits survive the update"
	workersFlagNameConstant                 = "workers"
	workersFlagUsageConstant                = "Number of repositories synchronized in parallel"
	timeoutFlagNameConstant                 = "timeout"
	timeoutFlagUsageConstant                = "Wall-clock limit in seconds for each git command"
	manifestLoadFailedMessageConstant       = "Manifest could not be loaded"
	executorCreationErrorTemplateConstant   = "unable to construct git executor: %w"
	configurerCreationErrorTemplateConstant = "unable to construct push URL configurer: %w"
	driverCreationErrorTemplateConstant     = "unable to construct batch driver: %w"
)

// SyncCommandBuilder assembles the sync command.
type SyncCommandBuilder struct {
	LoggerProvider        LoggerProvider
	LoggerBuilderProvider LoggerBuilderProvider
	ConfigurationProvider func() CommandConfiguration
	CommandRunner         execshell.CommandRunner
	FileSystem            filesystem.FileSystem
	TokenResolver         *credentials.TokenResolver
	PathResolver          *pathutils.Resolver
	WorkingDirectory      string
}

// Build constructs the sync command.
func (builder *SyncCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   syncCommandUseConstant,
		Short: syncCommandShortDescriptionConstant,
		Long:  syncCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	bindLocationFlags(command)
	flags.AddSwitchFlag(command.Flags(), new(bool), preserveLocalFlagNameConstant, settings.DefaultPreserveLocal, preserveLocalFlagUsageConstant)
	command.Flags().Int(workersFlagNameConstant, settings.DefaultWorkers, workersFlagUsageConstant)
	command.Flags().Int(timeoutFlagNameConstant, settings.DefaultGitTimeoutSeconds, timeoutFlagUsageConstant)

	return command, nil
}

func (builder *SyncCommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := resolveLogger(builder.LoggerProvider)

	configuration := applyLocationFlags(command, resolveConfiguration(builder.ConfigurationProvider))
	if command.Flags().Changed(preserveLocalFlagNameConstant) {
		configuration.PreserveLocal, _ = command.Flags().GetBool(preserveLocalFlagNameConstant)
	}
	if command.Flags().Changed(workersFlagNameConstant) {
		configuration.Workers, _ = command.Flags().GetInt(workersFlagNameConstant)
	}
	if command.Flags().Changed(timeoutFlagNameConstant) {
		configuration.GitTimeoutSeconds, _ = command.Flags().GetInt(timeoutFlagNameConstant)
	}

	runSettings, settingsError := buildSettings(configuration, builder.PathResolver, builder.WorkingDirectory)
	if settingsError != nil {
		return settingsError
	}
	logStartDiagnostics(logger, runSettings)

	specs, loadError := manifest.Load(runSettings.ManifestPath)
	if loadError != nil {
		logger.Error(manifestLoadFailedMessageConstant, zap.Error(loadError))
		return loadError
	}

	driver, driverError := builder.newDriver(command, logger, runSettings)
	if driverError != nil {
		return driverError
	}

	report := driver.RunAll(command.Context(), specs)
	if !report.Succeeded() {
		return PartialFailureError{Report: report}
	}
	return nil
}

// newDriver wires the convergence stack. Each repository gets collaborators bound to the logger the driver hands out.
func (builder *SyncCommandBuilder) newDriver(command *cobra.Command, logger *zap.Logger, runSettings settings.Settings) (*batch.Driver, error) {
	commandRunner := builder.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}
	fileSystem := builder.FileSystem
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}

	executor, executorError := execshell.NewShellExecutor(logger, commandRunner, runSettings.GitTimeout)
	if executorError != nil {
		return nil, fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}

	configurer, configurerError := credentials.NewConfigurer(
		credentials.Options{Enabled: runSettings.ConfigurePushURL, TokenSources: runSettings.PushTokenSources},
		builder.TokenResolver,
		executor,
		logger,
	)
	if configurerError != nil {
		return nil, fmt.Errorf(configurerCreationErrorTemplateConstant, configurerError)
	}

	ensurerFactory := func(repositoryLogger *zap.Logger) (batch.RepositoryEnsurer, error) {
		repositoryExecutor := executor.WithLogger(repositoryLogger)
		inspector, inspectorError := workspace.NewInspector(fileSystem, repositoryExecutor, repositoryLogger)
		if inspectorError != nil {
			return nil, inspectorError
		}
		engine, engineError := convergence.NewEngine(runSettings, convergence.Dependencies{
			Executor:       repositoryExecutor,
			Inspector:      inspector,
			PushConfigurer: configurer.WithExecutor(repositoryExecutor, repositoryLogger),
			FileSystem:     fileSystem,
			Logger:         repositoryLogger,
		})
		if engineError != nil {
			return nil, engineError
		}
		return engine, nil
	}

	driver, driverError := batch.NewDriver(ensurerFactory, logger, batch.Options{
		Workers:       runSettings.Workers,
		DepsDirectory: runSettings.DepsDirectory,
		LogOutput:     command.ErrOrStderr(),
		LoggerBuilder: resolveLoggerBuilder(builder.LoggerBuilderProvider),
	})
	if driverError != nil {
		return nil, fmt.Errorf(driverCreationErrorTemplateConstant, driverError)
	}
	return driver, nil
}
