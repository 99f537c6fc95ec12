// Package deps builds the workspace commands: sync converges every manifest
// repository under the deps directory and status reports the state of each
// checkout without touching it.
package deps
