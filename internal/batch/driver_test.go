package batch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/reposync/internal/batch"
	"github.com/temirov/reposync/internal/convergence"
	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/utils"
)

const (
	testDepsDirectoryConstant         = "/workspace/deps"
	testSuccessSummaryConstant        = "=== SYNC SUMMARY: SUCCESS ==="
	testFailureSummaryConstant        = "=== SYNC SUMMARY: PARTIAL FAILURE ==="
	testGroupStartedTemplateConstant  = "begin %s"
	testGroupFinishedTemplateConstant = "end %s"
)

type scriptedEnsurer struct {
	mutex     sync.Mutex
	processed []string
	outcomes  map[string]func() error
	delays    map[string]time.Duration
}

func (ensurer *scriptedEnsurer) factory() batch.EnsurerFactory {
	return func(logger *zap.Logger) (batch.RepositoryEnsurer, error) {
		return &boundEnsurer{shared: ensurer, logger: logger}, nil
	}
}

type boundEnsurer struct {
	shared *scriptedEnsurer
	logger *zap.Logger
}

func (ensurer *boundEnsurer) Ensure(executionContext context.Context, spec manifest.RepoSpec) error {
	return ensurer.shared.ensureWith(executionContext, ensurer.logger, spec)
}

func (ensurer *scriptedEnsurer) ensureWith(executionContext context.Context, logger *zap.Logger, spec manifest.RepoSpec) error {
	ensurer.mutex.Lock()
	ensurer.processed = append(ensurer.processed, spec.Name)
	ensurer.mutex.Unlock()

	logger.Info(fmt.Sprintf(testGroupStartedTemplateConstant, spec.Name))
	time.Sleep(ensurer.delays[spec.Name])
	logger.Info(fmt.Sprintf(testGroupFinishedTemplateConstant, spec.Name))

	if outcome, configured := ensurer.outcomes[spec.Name]; configured {
		return outcome()
	}
	return nil
}

func specsNamed(names ...string) []manifest.RepoSpec {
	specs := make([]manifest.RepoSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, manifest.NewRepoSpec(name, "https://example.com/"+name+".git", ""))
	}
	return specs
}

func commandFailure(exitCode int, arguments ...string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: arguments}},
		Result:  execshell.ExecutionResult{ExitCode: exitCode, StandardError: "fatal: could not read from remote repository"},
	}
}

func TestRunAllProcessesInNameOrder(testInstance *testing.T) {
	ensurer := &scriptedEnsurer{}
	observerCore, observerLogs := observer.New(zap.DebugLevel)
	driver, driverError := batch.NewDriver(ensurer.factory(), zap.New(observerCore), batch.Options{DepsDirectory: testDepsDirectoryConstant})
	require.NoError(testInstance, driverError)

	report := driver.RunAll(context.Background(), specsNamed("zed", "alpha", "mid"))

	require.Equal(testInstance, []string{"alpha", "mid", "zed"}, ensurer.processed)
	require.Equal(testInstance, []string{"alpha", "mid", "zed"}, report.Processed)
	require.True(testInstance, report.Succeeded())
	require.Equal(testInstance, batch.ExitCodeSuccess, report.ExitCode())
	require.Equal(testInstance, 1, observerLogs.FilterMessage(testSuccessSummaryConstant).Len())
	require.Equal(testInstance, 1, observerLogs.FilterMessage("Workspace ready: "+testDepsDirectoryConstant).Len())
}

func TestRunAllIsolatesFailures(testInstance *testing.T) {
	ensurer := &scriptedEnsurer{outcomes: map[string]func() error{
		"beta": func() error {
			return fmt.Errorf("update beta: %w", commandFailure(128, "fetch", "--prune", "origin", "main"))
		},
		"delta": func() error {
			return execshell.CommandTimeoutError{
				Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: []string{"clone", "https://example.com/delta.git"}}},
				Timeout: time.Second,
			}
		},
		"gamma": func() error {
			return convergence.CheckoutConflictError{Path: "/workspace/deps/gamma"}
		},
		"omega": func() error {
			panic("index out of range")
		},
	}}
	observerCore, observerLogs := observer.New(zap.DebugLevel)
	driver, driverError := batch.NewDriver(ensurer.factory(), zap.New(observerCore), batch.Options{DepsDirectory: testDepsDirectoryConstant})
	require.NoError(testInstance, driverError)

	report := driver.RunAll(context.Background(), specsNamed("omega", "gamma", "epsilon", "delta", "beta", "alpha"))

	require.Equal(testInstance, []string{"alpha", "beta", "delta", "epsilon", "gamma", "omega"}, ensurer.processed)
	require.Equal(testInstance, batch.ExitCodePartialFailure, report.ExitCode())
	require.Len(testInstance, report.Failures, 4)

	commandFailed := report.Failures[0]
	require.Equal(testInstance, "beta", commandFailed.RepositoryName)
	require.Equal(testInstance, batch.FailureKindCommandFailed, commandFailed.Kind)
	require.Equal(testInstance, 128, commandFailed.ExitCode)
	require.Equal(testInstance, "git fetch --prune origin main", commandFailed.Command)

	timedOut := report.Failures[1]
	require.Equal(testInstance, "delta", timedOut.RepositoryName)
	require.Equal(testInstance, batch.FailureKindTimeout, timedOut.Kind)
	require.Equal(testInstance, "git clone https://example.com/delta.git", timedOut.Command)

	conflict := report.Failures[2]
	require.Equal(testInstance, "gamma", conflict.RepositoryName)
	require.Equal(testInstance, batch.FailureKindUnexpected, conflict.Kind)
	require.True(testInstance, strings.HasPrefix(conflict.Detail, "convergence.CheckoutConflictError: "))

	panicked := report.Failures[3]
	require.Equal(testInstance, "omega", panicked.RepositoryName)
	require.Equal(testInstance, batch.FailureKindUnexpected, panicked.Kind)
	require.Equal(testInstance, "panic: index out of range", panicked.Detail)

	require.Equal(testInstance, 1, observerLogs.FilterMessage(testFailureSummaryConstant).Len())
	require.Equal(testInstance, 1, observerLogs.FilterMessage("Workspace is partial. See deps/: "+testDepsDirectoryConstant).Len())
	summaryEntries := observerLogs.FilterMessageSnippet(" - ").All()
	require.Len(testInstance, summaryEntries, 4)
	require.Equal(testInstance, "git fetch --prune origin main", summaryEntries[0].ContextMap()["command"])
	require.EqualValues(testInstance, 128, summaryEntries[0].ContextMap()["exit_code"])
}

func TestRunAllRecordsFactoryFailures(testInstance *testing.T) {
	factoryFailure := errors.New("git executor not configured")
	factory := func(logger *zap.Logger) (batch.RepositoryEnsurer, error) {
		return nil, factoryFailure
	}
	driver, driverError := batch.NewDriver(factory, zap.NewNop(), batch.Options{})
	require.NoError(testInstance, driverError)

	report := driver.RunAll(context.Background(), specsNamed("beta", "alpha"))

	require.Len(testInstance, report.Failures, 2)
	require.Equal(testInstance, "alpha", report.Failures[0].RepositoryName)
	require.Equal(testInstance, batch.FailureKindUnexpected, report.Failures[0].Kind)
}

func TestRunAllGroupsConcurrentOutput(testInstance *testing.T) {
	ensurer := &scriptedEnsurer{
		delays: map[string]time.Duration{
			"alpha": 60 * time.Millisecond,
			"beta":  10 * time.Millisecond,
			"gamma": 30 * time.Millisecond,
		},
		outcomes: map[string]func() error{
			"alpha": func() error { return commandFailure(1, "reset", "--hard", "origin/main") },
			"gamma": func() error { return errors.New("disk full") },
		},
	}
	var output bytes.Buffer
	loggerFactory := utils.NewLoggerFactory()
	loggerBuilder := func(writer io.Writer) (*zap.Logger, error) {
		return loggerFactory.CreateLoggerWithWriter(utils.LogLevelInfo, utils.LogFormatConsole, writer)
	}
	driver, driverError := batch.NewDriver(ensurer.factory(), zap.NewNop(), batch.Options{
		Workers:       3,
		LogOutput:     &output,
		LoggerBuilder: loggerBuilder,
	})
	require.NoError(testInstance, driverError)

	report := driver.RunAll(context.Background(), specsNamed("gamma", "beta", "alpha"))

	require.ElementsMatch(testInstance, []string{"alpha", "beta", "gamma"}, ensurer.processed)
	require.Equal(testInstance, []string{"alpha", "beta", "gamma"}, report.Processed)
	require.Len(testInstance, report.Failures, 2)
	require.Equal(testInstance, "alpha", report.Failures[0].RepositoryName)
	require.Equal(testInstance, "gamma", report.Failures[1].RepositoryName)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	for _, name := range []string{"alpha", "beta", "gamma"} {
		startIndex := indexOfLineContaining(lines, fmt.Sprintf(testGroupStartedTemplateConstant, name))
		require.GreaterOrEqual(testInstance, startIndex, 0)
		require.Less(testInstance, startIndex+1, len(lines))
		require.Contains(testInstance, lines[startIndex+1], fmt.Sprintf(testGroupFinishedTemplateConstant, name))
	}
}

func TestNewDriverValidatesCollaborators(testInstance *testing.T) {
	_, factoryError := batch.NewDriver(nil, zap.NewNop(), batch.Options{})
	require.ErrorIs(testInstance, factoryError, batch.ErrEnsurerFactoryNotConfigured)

	_, loggerError := batch.NewDriver((&scriptedEnsurer{}).factory(), nil, batch.Options{})
	require.ErrorIs(testInstance, loggerError, batch.ErrLoggerNotConfigured)
}

func indexOfLineContaining(lines []string, fragment string) int {
	for lineIndex, line := range lines {
		if strings.Contains(line, fragment) {
			return lineIndex
		}
	}
	return -1
}
