// Package manifest loads the declarative list of repositories to synchronize.
//
// Manifests are TOML documents with [[repo]] tables, or YAML documents with a
// top-level repo list. Every entry needs a name and a url; ref defaults to main.
package manifest
