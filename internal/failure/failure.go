// Package failure defines the error categories shared by every build flow.
//
// Component packages wrap one of these sentinels so callers can classify any
// error with errors.Is without knowing which component produced it.
package failure

import (
	"errors"
)

var (
	// Unresolvable architecture, missing version declaration, bad config file.
	ErrConfiguration = errors.New("configuration error")
	// A tool environment failed to materialize.
	ErrToolBuild = errors.New("tool environment build failed")
	// A tool ran and exited non-zero.
	ErrToolExecution = errors.New("tool execution failed")
	// Missing install directory, missing artifact and similar host preconditions.
	ErrPrecondition = errors.New("environment precondition failed")
)

// ExitCoder is implemented by errors that carry a process exit status.
type ExitCoder interface {
	ExitCode() int
}

// ExitCode maps err to the process exit status. Errors carrying their own
// status (tool executions) keep it; everything else exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}

// Kind names the category err belongs to, for log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrToolBuild):
		return "tool_build"
	case errors.Is(err, ErrToolExecution):
		return "tool_execution"
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	default:
		return "internal"
	}
}
