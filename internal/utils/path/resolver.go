// Package pathutils resolves user-supplied workspace paths.
package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant      = "~"
	tildeSlashPrefixConstant = "~/"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// Resolver expands home shortcuts and anchors relative paths to a base directory.
type Resolver struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewResolver constructs a Resolver; a nil provider uses os.UserHomeDir.
func NewResolver(provider HomeDirectoryProvider) *Resolver {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &Resolver{homeDirectoryProvider: provider}
}

// Expand replaces a leading "~" or "~/" with the home directory. Other values are returned unchanged.
func (resolver *Resolver) Expand(candidatePath string) string {
	if candidatePath != tildeSymbolConstant && !strings.HasPrefix(candidatePath, tildeSlashPrefixConstant) {
		return candidatePath
	}

	resolver.initializationGuard.Do(func() {
		resolver.homeDirectory, resolver.homeDirectoryError = resolver.homeDirectoryProvider()
	})
	if resolver.homeDirectoryError != nil || len(resolver.homeDirectory) == 0 {
		return candidatePath
	}
	return filepath.Join(resolver.homeDirectory, strings.TrimPrefix(candidatePath, tildeSymbolConstant))
}

// ResolveUnder expands candidatePath and, when it is relative, joins it onto baseDirectory. The result is absolute and clean.
func (resolver *Resolver) ResolveUnder(baseDirectory string, candidatePath string) (string, error) {
	expandedPath := resolver.Expand(strings.TrimSpace(candidatePath))
	if !filepath.IsAbs(expandedPath) {
		expandedPath = filepath.Join(resolver.Expand(baseDirectory), expandedPath)
	}
	return filepath.Abs(expandedPath)
}
