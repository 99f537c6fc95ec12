// Package utils holds the ambient CLI plumbing: the Viper-backed
// ConfigurationLoader, the zap LoggerFactory, and FlushingWriter.
package utils
