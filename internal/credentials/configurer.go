// Package credentials resolves push tokens and points the push-only remote URL at a credential-bearing address.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/manifest"
)

const (
	gitRemoteSubcommandConstant            = "remote"
	gitSetURLSubcommandConstant            = "set-url"
	gitPushFlagConstant                    = "--push"
	originRemoteNameConstant               = "origin"
	disabledMessageTemplateConstant        = "Push URL configuration disabled for %s"
	noTokenMessageTemplateConstant         = "No push token found for %s; leaving push URL unchanged"
	skipSchemeMessageTemplateConstant      = "Skipping push URL configuration for %s: only http and https remotes can carry a token"
	configuredMessageTemplateConstant      = "Configured push URL for %s"
	configurePushURLFailedTemplateConstant = "configure push url for %s: %w"
	logFieldRepositoryConstant             = "repository"
	logFieldPushURLConstant                = "push_url"
	logFieldTokenSourceConstant            = "token_source"
	logFieldReasonConstant                 = "reason"
	executorNotConfiguredMessageConstant   = "credentials: git executor not configured"
)

// ErrExecutorNotConfigured indicates a nil git executor was supplied.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Options controls whether and from where push tokens are applied.
type Options struct {
	Enabled      bool
	TokenSources []string
}

// Configurer writes the push-only remote URL of a checkout.
type Configurer struct {
	enabled  bool
	sources  []TokenSource
	resolver *TokenResolver
	executor GitExecutor
	logger   *zap.Logger
}

// NewConfigurer validates options and constructs a Configurer. A nil resolver reads the process environment.
func NewConfigurer(options Options, resolver *TokenResolver, executor GitExecutor, logger *zap.Logger) (*Configurer, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	sources, parseError := ParseTokenSources(options.TokenSources)
	if parseError != nil {
		return nil, parseError
	}
	if resolver == nil {
		resolver = NewTokenResolver(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Configurer{
		enabled:  options.Enabled,
		sources:  sources,
		resolver: resolver,
		executor: executor,
		logger:   logger,
	}, nil
}

// WithExecutor returns a copy of the configurer bound to another executor and logger.
func (configurer *Configurer) WithExecutor(executor GitExecutor, logger *zap.Logger) *Configurer {
	duplicated := *configurer
	if executor != nil {
		duplicated.executor = executor
	}
	if logger != nil {
		duplicated.logger = logger
	}
	return &duplicated
}

// Configure sets the push-only URL of origin in repositoryPath. Missing tokens, disabled configuration,
// and non-web schemes leave the remote untouched.
func (configurer *Configurer) Configure(executionContext context.Context, spec manifest.RepoSpec, repositoryPath string) error {
	if !configurer.enabled {
		configurer.logger.Debug(fmt.Sprintf(disabledMessageTemplateConstant, spec.Name), zap.String(logFieldRepositoryConstant, spec.Name))
		return nil
	}

	token, source, found := configurer.resolver.ResolveFirst(executionContext, configurer.sources)
	if !found {
		configurer.logger.Info(fmt.Sprintf(noTokenMessageTemplateConstant, spec.Name), zap.String(logFieldRepositoryConstant, spec.Name))
		return nil
	}

	pushURL, buildError := BuildPushURL(spec.URL, token)
	if buildError != nil {
		configurer.logger.Warn(
			fmt.Sprintf(skipSchemeMessageTemplateConstant, spec.Name),
			zap.String(logFieldRepositoryConstant, spec.Name),
			zap.String(logFieldReasonConstant, execshell.CommandMessageFormatter{}.Redact(sensitiveCommand(token), buildError.Error())),
		)
		return nil
	}

	_, executionError := configurer.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitRemoteSubcommandConstant, gitSetURLSubcommandConstant, gitPushFlagConstant, originRemoteNameConstant, pushURL.Value},
		LogArguments:         []string{gitRemoteSubcommandConstant, gitSetURLSubcommandConstant, gitPushFlagConstant, originRemoteNameConstant, pushURL.Masked},
		SensitiveValues:      []string{token, pushURL.EscapedToken},
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: execshell.NonInteractiveGitEnvironment(),
	})
	if executionError != nil {
		return fmt.Errorf(configurePushURLFailedTemplateConstant, spec.Name, executionError)
	}

	configurer.logger.Info(
		fmt.Sprintf(configuredMessageTemplateConstant, spec.Name),
		zap.String(logFieldRepositoryConstant, spec.Name),
		zap.String(logFieldPushURLConstant, pushURL.Masked),
		zap.String(logFieldTokenSourceConstant, source.String()),
	)
	return nil
}

func sensitiveCommand(token string) execshell.ShellCommand {
	return execshell.ShellCommand{Details: execshell.CommandDetails{SensitiveValues: []string{token}}}
}
