package deps

import (
	"strings"

	"github.com/temirov/reposync/internal/settings"
)

// Configuration keys shared by the sync and status commands. They live at the top level of the
// configuration file so that BOOTSTRAP_<KEY> environment variables map onto them directly.
const (
	RootConfigurationKey             = "root"
	ManifestConfigurationKey         = "manifest"
	DepsDirectoryConfigurationKey    = "deps_dir"
	GitTimeoutConfigurationKey       = "git_timeout_s"
	CloneDepthConfigurationKey       = "clone_depth"
	UsePartialCloneConfigurationKey  = "use_partial_clone"
	PreserveLocalConfigurationKey    = "preserve_local"
	ConfigurePushURLConfigurationKey = "configure_push_url"
	PushTokenSourcesConfigurationKey = "push_token_env_vars"
	WorkersConfigurationKey          = "workers"
)

// CommandConfiguration captures the persisted synchronization settings.
type CommandConfiguration struct {
	Root              string   `mapstructure:"root"`
	Manifest          string   `mapstructure:"manifest"`
	DepsDirectory     string   `mapstructure:"deps_dir"`
	GitTimeoutSeconds int      `mapstructure:"git_timeout_s"`
	CloneDepth        int      `mapstructure:"clone_depth"`
	UsePartialClone   bool     `mapstructure:"use_partial_clone"`
	PreserveLocal     bool     `mapstructure:"preserve_local"`
	ConfigurePushURL  bool     `mapstructure:"configure_push_url"`
	PushTokenSources  []string `mapstructure:"push_token_env_vars"`
	Workers           int      `mapstructure:"workers"`
}

// DefaultCommandConfiguration mirrors settings.Default in configuration form.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Root:              settings.DefaultRootDirectory,
		Manifest:          settings.DefaultManifestPath,
		DepsDirectory:     settings.DefaultDepsDirectory,
		GitTimeoutSeconds: settings.DefaultGitTimeoutSeconds,
		CloneDepth:        settings.DefaultCloneDepth,
		UsePartialClone:   settings.DefaultUsePartialClone,
		PreserveLocal:     settings.DefaultPreserveLocal,
		ConfigurePushURL:  settings.DefaultConfigurePushURL,
		PushTokenSources:  settings.DefaultPushTokenSources(),
		Workers:           settings.DefaultWorkers,
	}
}

// DefaultConfigurationValues returns the configuration defaults keyed for the loader.
// Every key needs a default so that environment overrides are picked up during unmarshalling.
func DefaultConfigurationValues() map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		RootConfigurationKey:             defaults.Root,
		ManifestConfigurationKey:         defaults.Manifest,
		DepsDirectoryConfigurationKey:    defaults.DepsDirectory,
		GitTimeoutConfigurationKey:       defaults.GitTimeoutSeconds,
		CloneDepthConfigurationKey:       defaults.CloneDepth,
		UsePartialCloneConfigurationKey:  defaults.UsePartialClone,
		PreserveLocalConfigurationKey:    defaults.PreserveLocal,
		ConfigurePushURLConfigurationKey: defaults.ConfigurePushURL,
		PushTokenSourcesConfigurationKey: defaults.PushTokenSources,
		WorkersConfigurationKey:          defaults.Workers,
	}
}

// Sanitize trims textual values and restores defaults for blank ones.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration
	sanitized.Root = valueOrDefault(configuration.Root, defaults.Root)
	sanitized.Manifest = valueOrDefault(configuration.Manifest, defaults.Manifest)
	sanitized.DepsDirectory = valueOrDefault(configuration.DepsDirectory, defaults.DepsDirectory)
	sanitized.PushTokenSources = sanitizeTokenSources(configuration.PushTokenSources)
	return sanitized
}

func valueOrDefault(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallback
	}
	return trimmed
}

// Environment overrides arrive as a single comma separated value, so entries are split again here.
func sanitizeTokenSources(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		for _, part := range strings.Split(candidate, ",") {
			trimmed := strings.TrimSpace(part)
			if len(trimmed) == 0 {
				continue
			}
			sanitized = append(sanitized, trimmed)
		}
	}
	return sanitized
}
