package deps

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/filesystem"
	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/status"
	"github.com/temirov/reposync/internal/utils"
	pathutils "github.com/temirov/reposync/internal/utils/path"
	"github.com/temirov/reposync/internal/workspace"
)

const (
	statusCommandUseConstant               = "status"
	statusCommandShortDescriptionConstant  = "Show the state of every manifest checkout"
	statusCommandLongDescriptionConstant   = "status prints one table row per manifest repository with its checkout state, branch, HEAD, and remotes. It never modifies the workspace."
	inspectorCreationErrorTemplateConstant = "unable to construct checkout inspector: %w"
	reporterCreationErrorTemplateConstant  = "unable to construct status reporter: %w"
	renderStatusErrorTemplateConstant      = "unable to render status table: %w"
)

// StatusCommandBuilder assembles the status command.
type StatusCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	CommandRunner         execshell.CommandRunner
	FileSystem            filesystem.FileSystem
	PathResolver          *pathutils.Resolver
	WorkingDirectory      string
}

// Build constructs the status command.
func (builder *StatusCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   statusCommandUseConstant,
		Short: statusCommandShortDescriptionConstant,
		Long:  statusCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	bindLocationFlags(command)
	return command, nil
}

func (builder *StatusCommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := resolveLogger(builder.LoggerProvider)

	configuration := applyLocationFlags(command, resolveConfiguration(builder.ConfigurationProvider))
	runSettings, settingsError := buildSettings(configuration, builder.PathResolver, builder.WorkingDirectory)
	if settingsError != nil {
		return settingsError
	}

	specs, loadError := manifest.Load(runSettings.ManifestPath)
	if loadError != nil {
		logger.Error(manifestLoadFailedMessageConstant, zap.Error(loadError))
		return loadError
	}

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
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}
	inspector, inspectorError := workspace.NewInspector(fileSystem, executor, logger)
	if inspectorError != nil {
		return fmt.Errorf(inspectorCreationErrorTemplateConstant, inspectorError)
	}
	reporter, reporterError := status.NewReporter(inspector, runSettings.DepsDirectory, logger)
	if reporterError != nil {
		return fmt.Errorf(reporterCreationErrorTemplateConstant, reporterError)
	}

	entries := reporter.Collect(command.Context(), specs)
	if renderError := status.Render(utils.NewFlushingWriter(command.OutOrStdout()), entries); renderError != nil {
		return fmt.Errorf(renderStatusErrorTemplateConstant, renderError)
	}
	return nil
}
