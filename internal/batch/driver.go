// Package batch drives convergence across every manifest entry and aggregates per-repository failures.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/reposync/internal/manifest"
)

const (
	runStartedMessageTemplateConstant    = "Synchronizing %d repositories"
	repositoryFailedTemplateConstant     = "ERROR: %s"
	summaryFailureMessageConstant        = "=== SYNC SUMMARY: PARTIAL FAILURE ==="
	summaryFailureEntryTemplateConstant  = " - %s"
	summaryPartialTemplateConstant       = "Workspace is partial. See deps/: %s"
	summarySuccessMessageConstant        = "=== SYNC SUMMARY: SUCCESS ==="
	summaryReadyTemplateConstant         = "Workspace ready: %s"
	logFieldRepositoryConstant           = "repository"
	logFieldKindConstant                 = "kind"
	logFieldCommandConstant              = "command"
	logFieldExitCodeConstant             = "exit_code"
	logFieldWorkersConstant              = "workers"
	logFieldFailureCountConstant         = "failure_count"
	ensurerFactoryMissingMessageConstant = "batch: repository ensurer factory not configured"
	loggerMissingMessageConstant         = "batch: logger not configured"
)

var (
	// ErrEnsurerFactoryNotConfigured indicates a nil ensurer factory was supplied.
	ErrEnsurerFactoryNotConfigured = errors.New(ensurerFactoryMissingMessageConstant)
	// ErrLoggerNotConfigured indicates a nil logger was supplied.
	ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)
)

// RepositoryEnsurer converges a single repository.
type RepositoryEnsurer interface {
	Ensure(executionContext context.Context, spec manifest.RepoSpec) error
}

// EnsurerFactory builds an ensurer whose output goes to logger.
type EnsurerFactory func(logger *zap.Logger) (RepositoryEnsurer, error)

// LoggerBuilder creates a logger that writes to writer. It is used to buffer per-repository output when workers run in parallel.
type LoggerBuilder func(writer io.Writer) (*zap.Logger, error)

// Options tunes a Driver.
type Options struct {
	Workers       int
	DepsDirectory string
	// LogOutput receives buffered per-repository log groups when Workers > 1.
	LogOutput     io.Writer
	LoggerBuilder LoggerBuilder
}

// Driver runs the ensurer over every manifest entry without letting one failure stop the others.
type Driver struct {
	ensurerFactory EnsurerFactory
	logger         *zap.Logger
	options        Options
	outputMutex    sync.Mutex
}

// NewDriver validates collaborators and constructs a Driver.
func NewDriver(ensurerFactory EnsurerFactory, logger *zap.Logger, options Options) (*Driver, error) {
	if ensurerFactory == nil {
		return nil, ErrEnsurerFactoryNotConfigured
	}
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	return &Driver{ensurerFactory: ensurerFactory, logger: logger, options: options}, nil
}

// RunAll synchronizes specs in name order and reports every failure.
func (driver *Driver) RunAll(executionContext context.Context, specs []manifest.RepoSpec) Report {
	ordered := manifest.Sorted(specs)
	driver.logger.Info(fmt.Sprintf(runStartedMessageTemplateConstant, len(ordered)), zap.Int(logFieldWorkersConstant, driver.options.Workers))

	outcomes := make([]*Failure, len(ordered))
	if driver.options.Workers > 1 && len(ordered) > 1 {
		driver.runConcurrently(executionContext, ordered, outcomes)
	} else {
		driver.runSequentially(executionContext, ordered, outcomes)
	}

	report := Report{DepsDirectory: driver.options.DepsDirectory}
	for specIndex, spec := range ordered {
		report.Processed = append(report.Processed, spec.Name)
		if outcomes[specIndex] != nil {
			report.Failures = append(report.Failures, *outcomes[specIndex])
		}
	}
	driver.logSummary(report)
	return report
}

func (driver *Driver) runSequentially(executionContext context.Context, ordered []manifest.RepoSpec, outcomes []*Failure) {
	ensurer, factoryError := driver.ensurerFactory(driver.logger)
	for specIndex, spec := range ordered {
		if factoryError != nil {
			failure := ClassifyFailure(spec.Name, factoryError)
			driver.logFailure(driver.logger, failure)
			outcomes[specIndex] = &failure
			continue
		}
		outcomes[specIndex] = driver.ensureOne(executionContext, driver.logger, ensurer, spec)
	}
}

func (driver *Driver) runConcurrently(executionContext context.Context, ordered []manifest.RepoSpec, outcomes []*Failure) {
	var group errgroup.Group
	group.SetLimit(driver.options.Workers)
	for specIndex, spec := range ordered {
		group.Go(func() error {
			outcomes[specIndex] = driver.ensureGrouped(executionContext, spec)
			return nil
		})
	}
	_ = group.Wait()
}

// ensureGrouped buffers the output of one repository and writes it out as a single block.
func (driver *Driver) ensureGrouped(executionContext context.Context, spec manifest.RepoSpec) *Failure {
	if driver.options.LoggerBuilder == nil || driver.options.LogOutput == nil {
		return driver.ensureWithLogger(executionContext, driver.logger, spec)
	}

	var buffer bytes.Buffer
	groupLogger, builderError := driver.options.LoggerBuilder(&buffer)
	if builderError != nil {
		return driver.ensureWithLogger(executionContext, driver.logger, spec)
	}

	outcome := driver.ensureWithLogger(executionContext, groupLogger, spec)
	_ = groupLogger.Sync()

	driver.outputMutex.Lock()
	defer driver.outputMutex.Unlock()
	_, _ = driver.options.LogOutput.Write(buffer.Bytes())
	return outcome
}

func (driver *Driver) ensureWithLogger(executionContext context.Context, logger *zap.Logger, spec manifest.RepoSpec) *Failure {
	ensurer, factoryError := driver.ensurerFactory(logger)
	if factoryError != nil {
		failure := ClassifyFailure(spec.Name, factoryError)
		driver.logFailure(logger, failure)
		return &failure
	}
	return driver.ensureOne(executionContext, logger, ensurer, spec)
}

func (driver *Driver) ensureOne(executionContext context.Context, logger *zap.Logger, ensurer RepositoryEnsurer, spec manifest.RepoSpec) (outcome *Failure) {
	defer func() {
		if recovered := recover(); recovered != nil {
			failure := panicFailure(spec.Name, recovered)
			driver.logFailure(logger, failure)
			outcome = &failure
		}
	}()

	if ensureError := ensurer.Ensure(executionContext, spec); ensureError != nil {
		failure := ClassifyFailure(spec.Name, ensureError)
		driver.logFailure(logger, failure)
		return &failure
	}
	return nil
}

func (driver *Driver) logFailure(logger *zap.Logger, failure Failure) {
	logger.Error(
		fmt.Sprintf(repositoryFailedTemplateConstant, failure.String()),
		zap.String(logFieldRepositoryConstant, failure.RepositoryName),
		zap.String(logFieldKindConstant, string(failure.Kind)),
	)
}

func (driver *Driver) logSummary(report Report) {
	if report.Succeeded() {
		driver.logger.Info(summarySuccessMessageConstant)
		driver.logger.Info(fmt.Sprintf(summaryReadyTemplateConstant, report.DepsDirectory))
		return
	}

	driver.logger.Error(summaryFailureMessageConstant, zap.Int(logFieldFailureCountConstant, len(report.Failures)))
	for _, failure := range report.Failures {
		fields := []zap.Field{
			zap.String(logFieldRepositoryConstant, failure.RepositoryName),
			zap.String(logFieldKindConstant, string(failure.Kind)),
		}
		if len(failure.Command) > 0 {
			fields = append(fields, zap.String(logFieldCommandConstant, failure.Command))
		}
		if failure.Kind == FailureKindCommandFailed {
			fields = append(fields, zap.Int(logFieldExitCodeConstant, failure.ExitCode))
		}
		driver.logger.Error(fmt.Sprintf(summaryFailureEntryTemplateConstant, failure.String()), fields...)
	}
	driver.logger.Warn(fmt.Sprintf(summaryPartialTemplateConstant, report.DepsDirectory))
}
