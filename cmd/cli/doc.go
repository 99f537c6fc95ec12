// Package cli constructs the reposync command-line interface. It wires the
// Cobra command hierarchy to the Viper configuration loader and the zap
// logger, and maps command errors to process exit codes.
package cli
