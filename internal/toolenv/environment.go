package toolenv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/ockamctl/internal/tools"
)

// ToolName identifies one tool environment, e.g. "go" or "golangci-lint".
type ToolName string

var toolNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Validate restricts names to what is valid as a build target and image name.
func (n ToolName) Validate() error {
	if !toolNamePattern.MatchString(string(n)) {
		return fmt.Errorf("%w: %q", ErrInvalidTool, string(n))
	}
	return nil
}

// Tag is the deterministic environment tag for name under namespace.
func Tag(namespace string, name ToolName) string {
	if namespace == "" {
		return string(name)
	}
	return namespace + "/" + string(name)
}

// Handle refers to a materialized environment.
type Handle struct {
	Tool ToolName
	Tag  string
}

// Streams wires a build or run to the caller.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// TTY requests a terminal-attached run.
	TTY bool
	// Trace receives "+ command" lines; nil disables echoing.
	Trace io.Writer
}

// Engine is the isolation mechanism behind tool environments.
type Engine interface {
	// Ensure builds (or confirms) the environment for name.
	Ensure(ctx context.Context, name ToolName, s Streams) (Handle, error)
	// Exec runs inv inside h and returns the tool's exit status. err is
	// reserved for runs that could not happen at all.
	Exec(ctx context.Context, h Handle, inv Invocation, s Streams) (int, error)
}

// Recorder observes environment builds and tool runs.
type Recorder interface {
	EnvironmentBuild(tool string, ok bool, d time.Duration)
	ToolRun(tool string, status int, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) EnvironmentBuild(string, bool, time.Duration) {}
func (nopRecorder) ToolRun(string, int, time.Duration)           {}

// Environment materializes tool environments with mode-aware visibility.
type Environment struct {
	engine   Engine
	stdout   io.Writer
	stderr   io.Writer
	recorder Recorder
}

// NewEnvironment wraps engine. Build output goes to stdout/stderr when it is
// visible.
func NewEnvironment(engine Engine, stdout, stderr io.Writer, recorder Recorder) *Environment {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Environment{engine: engine, stdout: stdout, stderr: stderr, recorder: recorder}
}

// Ensure builds the environment for name. Output streams live only in
// traced mode; otherwise it is captured and flushed to stderr if the build
// fails.
func (e *Environment) Ensure(ctx context.Context, name ToolName, mode Mode) (Handle, error) {
	if err := name.Validate(); err != nil {
		return Handle{}, err
	}

	var captured bytes.Buffer
	streams := Streams{Stdout: &captured, Stderr: &captured}
	if mode.Traced() {
		streams = Streams{Stdout: e.stdout, Stderr: e.stderr, Trace: e.stderr}
	}

	log.Debug().Msgf("toolenv.ensure tool=%s mode=%s", name, mode)
	start := time.Now()
	h, err := e.engine.Ensure(ctx, name, streams)
	e.recorder.EnvironmentBuild(string(name), err == nil, time.Since(start))
	if err != nil {
		if captured.Len() > 0 {
			_, _ = e.stderr.Write(captured.Bytes())
		}
		return Handle{}, &BuildError{Tool: name, Output: captured.Bytes(), Err: err}
	}
	return h, nil
}

func trace(s Streams, cmd tools.Command) {
	if s.Trace == nil {
		return
	}
	fmt.Fprintf(s.Trace, "+ %s\n", cmd.String())
}
