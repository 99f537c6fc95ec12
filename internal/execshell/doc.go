// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with a wall-clock deadline, a
// redaction-safe start line logged before every command, and typed failures
// that distinguish timeouts from non-zero exits. OSCommandRunner is the
// default process-backed runner.
package execshell
