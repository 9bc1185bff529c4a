// Package tools provides the host process backend used by tool engines.
//
// Ownership boundary:
// - spawning host commands (docker CLI, go) with explicit env and streams
//
// - exit-status extraction that never hides a non-zero status
package tools
