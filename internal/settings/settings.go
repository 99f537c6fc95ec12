// Package settings defines the immutable synchronization configuration resolved once at startup.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default values mirror the historical bootstrap tunables.
const (
	DefaultGitTimeoutSeconds = 1800
	DefaultCloneDepth        = 1
	DefaultUsePartialClone   = true
	DefaultPreserveLocal     = false
	DefaultConfigurePushURL  = true
	DefaultWorkers           = 1
	DefaultManifestPath      = "repos.toml"
	DefaultDepsDirectory     = "deps"
	DefaultRootDirectory     = "."
)

const (
	fullHistoryCloneDepthConstant       = 0
	invalidTimeoutTemplateConstant      = "git timeout must be positive, got %s"
	invalidCloneDepthTemplateConstant   = "clone depth must be zero or positive, got %d"
	invalidWorkersTemplateConstant      = "workers must be positive, got %d"
	missingManifestPathMessageConstant  = "manifest path must be provided"
	missingDepsDirectoryMessageConstant = "deps directory must be provided"
)

// DefaultPushTokenSources lists the credential sources scanned for a push token, in priority order.
func DefaultPushTokenSources() []string {
	return []string{
		"BOOTSTRAP_GIT_TOKEN",
		"GIT_TOKEN",
		"GITHUB_TOKEN",
		"GH_TOKEN",
		"GH_TOKEN_2",
	}
}

// Settings captures every tunable of a synchronization run.
type Settings struct {
	RootDirectory    string
	ManifestPath     string
	DepsDirectory    string
	GitTimeout       time.Duration
	CloneDepth       int
	UsePartialClone  bool
	PreserveLocal    bool
	ConfigurePushURL bool
	PushTokenSources []string
	Workers          int
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		RootDirectory:    DefaultRootDirectory,
		ManifestPath:     DefaultManifestPath,
		DepsDirectory:    DefaultDepsDirectory,
		GitTimeout:       DefaultGitTimeoutSeconds * time.Second,
		CloneDepth:       DefaultCloneDepth,
		UsePartialClone:  DefaultUsePartialClone,
		PreserveLocal:    DefaultPreserveLocal,
		ConfigurePushURL: DefaultConfigurePushURL,
		PushTokenSources: DefaultPushTokenSources(),
		Workers:          DefaultWorkers,
	}
}

// Validate reports the first invalid value.
func (configuration Settings) Validate() error {
	if configuration.GitTimeout <= 0 {
		return fmt.Errorf(invalidTimeoutTemplateConstant, configuration.GitTimeout)
	}
	if configuration.CloneDepth < 0 {
		return fmt.Errorf(invalidCloneDepthTemplateConstant, configuration.CloneDepth)
	}
	if configuration.Workers < 1 {
		return fmt.Errorf(invalidWorkersTemplateConstant, configuration.Workers)
	}
	if len(strings.TrimSpace(configuration.ManifestPath)) == 0 {
		return errors.New(missingManifestPathMessageConstant)
	}
	if len(strings.TrimSpace(configuration.DepsDirectory)) == 0 {
		return errors.New(missingDepsDirectoryMessageConstant)
	}
	return nil
}

// FullHistory reports whether clones and fetches should omit the depth limit.
func (configuration Settings) FullHistory() bool {
	return configuration.CloneDepth == fullHistoryCloneDepthConstant
}

// DepthArguments returns the shallow-depth flag shared by clone, fetch, and submodule update.
func (configuration Settings) DepthArguments() []string {
	if configuration.FullHistory() {
		return nil
	}
	return []string{"--depth", fmt.Sprintf("%d", configuration.CloneDepth)}
}
