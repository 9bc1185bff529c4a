package toolenv

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
)

// Invocation is one tool run.
type Invocation struct {
	Tool ToolName
	Args []string
	// Env entries (KEY=VALUE) set inside the environment, in order.
	Env         []string
	Interactive bool
	// MountRoot is exposed at the engine's mount path. Empty means the
	// current working directory.
	MountRoot string
	// Outputs are MountRoot-relative directories the run writes to. Engines
	// that snapshot the mount export them back after a successful run.
	Outputs []string
}

// Result is the outcome of a tool that ran.
type Result struct {
	ExitCode int
	Output   []byte
}

// Err converts a non-zero status into an *ExecError carrying the output.
func (r Result) Err(tool ToolName) error {
	if r.ExitCode == 0 {
		return nil
	}
	return &ExecError{Tool: tool, Status: r.ExitCode, Output: r.Output}
}

// passthrough lists caller variables forwarded per tool.
var passthrough = map[ToolName][]string{
	"go": {"GOOS", "GOARCH"},
}

// captureLimit bounds the copy of streamed output kept for diagnostics.
const captureLimit = 256 * 1024

// RunnerConfig wires a Runner to its engine and the caller's streams.
type RunnerConfig struct {
	Engine    Engine
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	// IsTerminal reports whether interactive runs can attach a TTY.
	IsTerminal func() bool
	Recorder   Recorder
}

// Runner executes tools inside their environments.
type Runner struct {
	env        *Environment
	engine     Engine
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	lookupEnv  func(string) (string, bool)
	isTerminal func() bool
	recorder   Recorder
}

func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		engine:     cfg.Engine,
		stdin:      cfg.Stdin,
		stdout:     cfg.Stdout,
		stderr:     cfg.Stderr,
		lookupEnv:  cfg.LookupEnv,
		isTerminal: cfg.IsTerminal,
		recorder:   cfg.Recorder,
	}
	if r.stdin == nil {
		r.stdin = os.Stdin
	}
	if r.stdout == nil {
		r.stdout = os.Stdout
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	if r.lookupEnv == nil {
		r.lookupEnv = os.LookupEnv
	}
	if r.isTerminal == nil {
		r.isTerminal = stdinIsTerminal
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	r.env = NewEnvironment(cfg.Engine, r.stdout, r.stderr, r.recorder)
	return r
}

// Run ensures the tool environment and runs inv inside it. A non-zero tool
// status is returned in Result with a nil error; callers decide whether it
// is fatal. Under ModeQuiet the output of a failing run is replayed to
// stderr after the fact.
func (r *Runner) Run(ctx context.Context, inv Invocation, mode Mode) (Result, error) {
	h, err := r.env.Ensure(ctx, inv.Tool, mode)
	if err != nil {
		return Result{}, err
	}

	if inv.MountRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Result{}, err
		}
		inv.MountRoot = wd
	}
	inv.Env = r.forwardedEnv(inv)

	visible := mode != ModeQuiet || inv.Interactive
	// Quiet runs keep everything for the replay; streamed runs keep a
	// bounded copy for diagnostics.
	captured := &boundedBuffer{}
	var streams Streams
	if visible {
		captured.limit = captureLimit
		streams = Streams{
			Stdout: io.MultiWriter(r.stdout, captured),
			Stderr: io.MultiWriter(r.stderr, captured),
		}
		if inv.Interactive {
			streams = Streams{Stdin: r.stdin, Stdout: r.stdout, Stderr: r.stderr, TTY: r.isTerminal()}
		}
	} else {
		streams = Streams{Stdout: captured, Stderr: captured}
	}
	if mode.Traced() {
		streams.Trace = r.stderr
	}

	log.Debug().Msgf("toolenv.run tool=%s tag=%s args=%q mode=%s interactive=%t",
		inv.Tool, h.Tag, strings.Join(inv.Args, " "), mode, inv.Interactive)
	start := time.Now()
	status, err := r.engine.Exec(ctx, h, inv, streams)
	r.recorder.ToolRun(string(inv.Tool), status, time.Since(start))
	if err != nil {
		if !visible && captured.Len() > 0 {
			_, _ = r.stderr.Write(captured.Bytes())
		}
		return Result{ExitCode: status, Output: captured.Bytes()}, err
	}
	if status != 0 && !visible {
		_, _ = r.stderr.Write(captured.Bytes())
	}
	if status != 0 {
		log.Debug().Msgf("toolenv.run tool=%s exit=%d", inv.Tool, status)
	}
	return Result{ExitCode: status, Output: captured.Bytes()}, nil
}

// forwardedEnv appends the tool's passthrough variables from the caller's
// environment unless the invocation already sets them.
func (r *Runner) forwardedEnv(inv Invocation) []string {
	names := passthrough[inv.Tool]
	if len(names) == 0 {
		return inv.Env
	}
	env := append([]string(nil), inv.Env...)
	for _, name := range names {
		if hasEnv(env, name) {
			continue
		}
		if v, ok := r.lookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

func hasEnv(env []string, name string) bool {
	for _, kv := range env {
		if k, _, _ := strings.Cut(kv, "="); k == name {
			return true
		}
	}
	return false
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// boundedBuffer keeps the first limit bytes written (all of them when limit
// is zero) and drops the rest without failing the writer it is teed behind.
// Stdout and stderr are copied by separate goroutines, so every access locks.
type boundedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	return b.buf.Write(p)
}

// Bytes returns a copy of the captured output.
func (b *boundedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func (b *boundedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
