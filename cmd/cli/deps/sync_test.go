package deps_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/reposync/cmd/cli/deps"
	"github.com/temirov/reposync/internal/batch"
	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/manifest"
)

const (
	testManifestContentConstant = `[[repo]]
name = "zed"
url = "https://example.com/zed.git"

[[repo]]
name = "alpha"
url = "https://example.com/alpha.git"
ref = "develop"
`
	testBrokenManifestContentConstant = `[[repo]]
name = "alpha"
url = "https://example.com/alpha.git"

[[repo]]
name = "broken"
url = "https://example.com/broken.git"
`
	testCloneFailureStandardErrorConstant = "fatal: repository not found"
)

// gitRunner emulates the git binary: clones create the checkout metadata and everything else succeeds.
type gitRunner struct {
	mutex    sync.Mutex
	commands [][]string
	failURL  string
}

func (runner *gitRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.mutex.Lock()
	runner.commands = append(runner.commands, command.Details.Arguments)
	runner.mutex.Unlock()

	arguments := command.Details.Arguments
	if arguments[0] != "clone" {
		return execshell.ExecutionResult{}, nil
	}
	sourceURL := arguments[len(arguments)-2]
	if len(runner.failURL) > 0 && sourceURL == runner.failURL {
		return execshell.ExecutionResult{ExitCode: 128, StandardError: testCloneFailureStandardErrorConstant}, nil
	}
	destination := arguments[len(arguments)-1]
	if mkdirError := os.MkdirAll(filepath.Join(destination, ".git"), 0o755); mkdirError != nil {
		return execshell.ExecutionResult{}, mkdirError
	}
	return execshell.ExecutionResult{}, nil
}

func (runner *gitRunner) subcommands() []string {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	names := make([]string, 0, len(runner.commands))
	for _, arguments := range runner.commands {
		names = append(names, arguments[0])
	}
	return names
}

func writeManifest(testInstance *testing.T, rootDirectory string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.WriteFile(filepath.Join(rootDirectory, "repos.toml"), []byte(content), 0o644))
}

func buildSync(testInstance *testing.T, runner *gitRunner, rootDirectory string, logger *zap.Logger, arguments ...string) error {
	testInstance.Helper()
	builder := deps.SyncCommandBuilder{
		LoggerProvider: func() *zap.Logger { return logger },
		ConfigurationProvider: func() deps.CommandConfiguration {
			configuration := deps.DefaultCommandConfiguration()
			configuration.ConfigurePushURL = false
			return configuration
		},
		CommandRunner:    runner,
		WorkingDirectory: rootDirectory,
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs(arguments)
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	return command.Execute()
}

func TestSyncCommandClonesThenUpdates(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	writeManifest(testInstance, rootDirectory, testManifestContentConstant)
	runner := &gitRunner{}
	observerCore, observerLogs := observer.New(zap.InfoLevel)

	require.NoError(testInstance, buildSync(testInstance, runner, rootDirectory, zap.New(observerCore)))
	require.DirExists(testInstance, filepath.Join(rootDirectory, "deps", "alpha", ".git"))
	require.DirExists(testInstance, filepath.Join(rootDirectory, "deps", "zed", ".git"))
	require.Equal(testInstance, []string{"clone", "clone"}, runner.subcommands())

	banners := observerLogs.FilterMessageSnippet("=== ").All()
	require.Equal(testInstance, "=== alpha @ develop ===", banners[0].Message)
	require.Equal(testInstance, 1, observerLogs.FilterMessage("=== SYNC SUMMARY: SUCCESS ===").Len())
	require.Equal(testInstance, 1, observerLogs.FilterMessage("Root: "+rootDirectory).Len())

	secondRunner := &gitRunner{}
	require.NoError(testInstance, buildSync(testInstance, secondRunner, rootDirectory, zap.NewNop()))
	require.Equal(testInstance,
		[]string{"remote", "fetch", "status", "reset", "clean", "remote", "fetch", "status", "reset", "clean"},
		secondRunner.subcommands(),
	)
}

func TestSyncCommandPreserveLocalFlagSkipsReset(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	writeManifest(testInstance, rootDirectory, testManifestContentConstant)
	require.NoError(testInstance, buildSync(testInstance, &gitRunner{}, rootDirectory, zap.NewNop()))

	runner := &gitRunner{}
	require.NoError(testInstance, buildSync(testInstance, runner, rootDirectory, zap.NewNop(), "--preserve-local"))
	require.NotContains(testInstance, runner.subcommands(), "reset")
	require.NotContains(testInstance, runner.subcommands(), "clean")
}

func TestSyncCommandReportsPartialFailure(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	writeManifest(testInstance, rootDirectory, testBrokenManifestContentConstant)
	runner := &gitRunner{failURL: "https://example.com/broken.git"}

	executionError := buildSync(testInstance, runner, rootDirectory, zap.NewNop(), "--workers", "2")
	var partialFailure deps.PartialFailureError
	require.ErrorAs(testInstance, executionError, &partialFailure)
	require.Equal(testInstance, batch.ExitCodePartialFailure, partialFailure.ExitCode())
	require.Len(testInstance, partialFailure.Report.Failures, 1)
	require.Equal(testInstance, "broken", partialFailure.Report.Failures[0].RepositoryName)
	require.Equal(testInstance, batch.FailureKindCommandFailed, partialFailure.Report.Failures[0].Kind)
	require.Equal(testInstance, "1 of 2 repositories failed to synchronize", partialFailure.Error())

	require.DirExists(testInstance, filepath.Join(rootDirectory, "deps", "alpha", ".git"))
	require.NoDirExists(testInstance, filepath.Join(rootDirectory, "deps", "broken"))
}

func TestSyncCommandRejectsInvalidManifest(testInstance *testing.T) {
	testCases := []struct {
		name     string
		manifest string
		fragment string
	}{
		{name: "missing", fragment: "missing manifest"},
		{name: "empty", manifest: "# nothing here\n", fragment: "must contain at least one [[repo]] entry"},
		{name: "duplicate", manifest: "[[repo]]\nname = \"a\"\nurl = \"u\"\n[[repo]]\nname = \"a\"\nurl = \"v\"\n", fragment: "duplicate repo name"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			rootDirectory := testInstance.TempDir()
			if len(testCase.manifest) > 0 {
				writeManifest(testInstance, rootDirectory, testCase.manifest)
			}
			runner := &gitRunner{}

			executionError := buildSync(testInstance, runner, rootDirectory, zap.NewNop())
			var loadError manifest.LoadError
			require.ErrorAs(testInstance, executionError, &loadError)
			require.True(testInstance, strings.Contains(loadError.Error(), testCase.fragment), loadError.Error())
			require.Empty(testInstance, runner.subcommands())
			require.NoDirExists(testInstance, filepath.Join(rootDirectory, "deps"))
		})
	}
}

func TestSyncCommandRejectsInvalidSettings(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	writeManifest(testInstance, rootDirectory, testManifestContentConstant)

	executionError := buildSync(testInstance, &gitRunner{}, rootDirectory, zap.NewNop(), "--workers", "0")
	require.ErrorContains(testInstance, executionError, "workers must be positive")
}
