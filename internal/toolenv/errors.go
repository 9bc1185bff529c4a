package toolenv

import (
	"errors"
	"fmt"

	"github.com/danmuck/ockamctl/internal/failure"
)

var (
	ErrInvalidTool            = errors.New("toolenv: invalid tool name")
	ErrInteractiveUnsupported = errors.New("toolenv: engine does not support interactive runs")
	ErrUnknownEngine          = fmt.Errorf("%w: unknown tool engine", failure.ErrConfiguration)
)

// BuildError reports an environment that failed to materialize, with the
// build output captured while it ran.
type BuildError struct {
	Tool   ToolName
	Output []byte
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("tool %s: %v: %v", e.Tool, failure.ErrToolBuild, e.Err)
}

func (e *BuildError) Unwrap() []error {
	return []error{failure.ErrToolBuild, e.Err}
}

// ExecError reports a tool that ran and exited non-zero.
type ExecError struct {
	Tool   ToolName
	Status int
	Output []byte
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("tool %s exited with status %d", e.Tool, e.Status)
}

func (e *ExecError) Unwrap() error {
	return failure.ErrToolExecution
}

// ExitCode lets the dispatcher reuse the tool's status as its own.
func (e *ExecError) ExitCode() int {
	return e.Status
}
