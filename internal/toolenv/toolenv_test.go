package toolenv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danmuck/ockamctl/internal/failure"
	"github.com/danmuck/ockamctl/internal/testutil/testlog"
)

type fakeEngine struct {
	ensured  []ToolName
	execs    []Invocation
	streams  []Streams
	buildOut string
	buildErr error
	runOut   string
	runErr   string
	status   int
	execErr  error
}

func (e *fakeEngine) Ensure(_ context.Context, name ToolName, s Streams) (Handle, error) {
	e.ensured = append(e.ensured, name)
	if e.buildOut != "" {
		_, _ = io.WriteString(s.Stdout, e.buildOut)
	}
	if e.buildErr != nil {
		return Handle{}, e.buildErr
	}
	return Handle{Tool: name, Tag: Tag("ockam/tool", name)}, nil
}

func (e *fakeEngine) Exec(_ context.Context, h Handle, inv Invocation, s Streams) (int, error) {
	e.execs = append(e.execs, inv)
	e.streams = append(e.streams, s)
	if s.Trace != nil {
		fmt.Fprintf(s.Trace, "+ run %s\n", h.Tag)
	}
	if e.runOut != "" {
		_, _ = io.WriteString(s.Stdout, e.runOut)
	}
	if e.runErr != "" {
		_, _ = io.WriteString(s.Stderr, e.runErr)
	}
	return e.status, e.execErr
}

type recordedRun struct {
	tool   string
	status int
}

type fakeRecorder struct {
	builds []bool
	runs   []recordedRun
}

func (r *fakeRecorder) EnvironmentBuild(_ string, ok bool, _ time.Duration) {
	r.builds = append(r.builds, ok)
}

func (r *fakeRecorder) ToolRun(tool string, status int, _ time.Duration) {
	r.runs = append(r.runs, recordedRun{tool: tool, status: status})
}

func newTestRunner(engine Engine, env map[string]string) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	r := NewRunner(RunnerConfig{
		Engine: engine,
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
		IsTerminal: func() bool { return false },
	})
	return r, &stdout, &stderr
}

func TestQuietSuccessSurfacesNothing(t *testing.T) {
	testlog.Start(t)
	engine := &fakeEngine{runOut: "compiled\n", runErr: "warning\n"}
	r, stdout, stderr := newTestRunner(engine, nil)

	res, err := r.Run(context.Background(), Invocation{Tool: "go", Args: []string{"build"}, MountRoot: "/src"}, ModeQuiet)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", res.ExitCode)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Fatalf("expected no output, got stdout=%q stderr=%q", stdout, stderr)
	}
	if string(res.Output) != "compiled\nwarning\n" {
		t.Fatalf("expected captured output in result, got %q", res.Output)
	}
}

func TestQuietFailureFlushesCapturedOutput(t *testing.T) {
	testlog.Start(t)
	engine := &fakeEngine{runOut: "building\n", runErr: "undefined: x\n", status: 2}
	r, stdout, stderr := newTestRunner(engine, nil)

	res, err := r.Run(context.Background(), Invocation{Tool: "go", MountRoot: "/src"}, ModeQuiet)
	if err != nil {
		t.Fatalf("non-zero exit must not be an error: %v", err)
	}
	if res.ExitCode != 2 {
		t.Fatalf("expected exit 2, got %d", res.ExitCode)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %q", stdout)
	}
	if got := stderr.String(); got != "building\nundefined: x\n" {
		t.Fatalf("expected flushed diagnostics, got %q", got)
	}

	execErr := res.Err("go")
	if !errors.Is(execErr, failure.ErrToolExecution) {
		t.Fatalf("expected tool execution error, got %v", execErr)
	}
	if failure.ExitCode(execErr) != 2 {
		t.Fatalf("expected exit code 2, got %d", failure.ExitCode(execErr))
	}
}

func TestTracedAlwaysSurfacesOutput(t *testing.T) {
	testlog.Start(t)
	for _, status := range []int{0, 1} {
		engine := &fakeEngine{runOut: "out\n", status: status, buildOut: "step 1/3\n"}
		r, stdout, stderr := newTestRunner(engine, nil)

		if _, err := r.Run(context.Background(), Invocation{Tool: "eclint", MountRoot: "/src"}, ModeTraced); err != nil {
			t.Fatalf("run: %v", err)
		}
		if stdout.String() != "step 1/3\nout\n" {
			t.Fatalf("status=%d: expected live build and run output, got %q", status, stdout)
		}
		if !strings.Contains(stderr.String(), "+ run ockam/tool/eclint") {
			t.Fatalf("status=%d: expected traced command line, got %q", status, stderr)
		}
	}
}

func TestNormalModeStreamsAndHidesBuildOutput(t *testing.T) {
	testlog.Start(t)
	engine := &fakeEngine{buildOut: "step 1/3\n", runOut: "ok\n"}
	r, stdout, stderr := newTestRunner(engine, nil)

	if _, err := r.Run(context.Background(), Invocation{Tool: "go", MountRoot: "/src"}, ModeNormal); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "ok\n" {
		t.Fatalf("expected only run output, got %q", stdout)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected silent successful build, got %q", stderr)
	}
}

func TestInteractiveOverridesQuiet(t *testing.T) {
	testlog.Start(t)
	engine := &fakeEngine{runOut: "shell\n"}
	r, stdout, _ := newTestRunner(engine, nil)

	if _, err := r.Run(context.Background(), Invocation{Tool: "go", Interactive: true, MountRoot: "/src"}, ModeQuiet); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "shell\n" {
		t.Fatalf("expected live output for interactive run, got %q", stdout)
	}
	if engine.streams[0].Stdin == nil {
		t.Fatalf("expected stdin attached for interactive run")
	}
}

func TestBuildFailureSurfacesDiagnostics(t *testing.T) {
	testlog.Start(t)
	engine := &fakeEngine{buildOut: "failed to solve\n", buildErr: errors.New("exit status 1")}
	rec := &fakeRecorder{}
	var stdout, stderr bytes.Buffer
	r := NewRunner(RunnerConfig{Engine: engine, Stdout: &stdout, Stderr: &stderr, Recorder: rec})

	_, err := r.Run(context.Background(), Invocation{Tool: "go", MountRoot: "/src"}, ModeQuiet)
	if !errors.Is(err, failure.ErrToolBuild) {
		t.Fatalf("expected tool build error, got %v", err)
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) || string(buildErr.Output) != "failed to solve\n" {
		t.Fatalf("expected captured build output on error, got %#v", err)
	}
	if stderr.String() != "failed to solve\n" {
		t.Fatalf("expected build output flushed, got %q", stderr.String())
	}
	if len(engine.execs) != 0 {
		t.Fatalf("expected no exec after failed build")
	}
	if diff := cmp.Diff([]bool{false}, rec.builds); diff != "" {
		t.Fatalf("unexpected recorded builds (-want +got):\n%s", diff)
	}
}

func TestGoToolForwardsPlatformVariables(t *testing.T) {
	testlog.Start(t)
	engine := &fakeEngine{}
	r, _, _ := newTestRunner(engine, map[string]string{"GOOS": "darwin", "GOARCH": "amd64", "HOME": "/root"})

	ctx := context.Background()
	if _, err := r.Run(ctx, Invocation{Tool: "go", MountRoot: "/src"}, ModeNormal); err != nil {
		t.Fatalf("run go: %v", err)
	}
	if _, err := r.Run(ctx, Invocation{Tool: "go", Env: []string{"GOOS=windows"}, MountRoot: "/src"}, ModeNormal); err != nil {
		t.Fatalf("run go with explicit env: %v", err)
	}
	if _, err := r.Run(ctx, Invocation{Tool: "eclint", MountRoot: "/src"}, ModeNormal); err != nil {
		t.Fatalf("run eclint: %v", err)
	}

	want := [][]string{
		{"GOOS=darwin", "GOARCH=amd64"},
		{"GOOS=windows", "GOARCH=amd64"},
		nil,
	}
	for i, inv := range engine.execs {
		if diff := cmp.Diff(want[i], inv.Env); diff != "" {
			t.Fatalf("exec %d env (-want +got):\n%s", i, diff)
		}
	}
}

func TestEnsureIsIdempotentAndUnmemoized(t *testing.T) {
	testlog.Start(t)
	engine := &fakeEngine{}
	env := NewEnvironment(engine, nil, nil, nil)

	first, err := env.Ensure(context.Background(), "go", ModeNormal)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := env.Ensure(context.Background(), "go", ModeNormal)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first != second {
		t.Fatalf("expected equal handles, got %+v and %+v", first, second)
	}
	if len(engine.ensured) != 2 {
		t.Fatalf("expected two engine builds, got %d", len(engine.ensured))
	}
}

func TestEnsureRejectsInvalidName(t *testing.T) {
	env := NewEnvironment(&fakeEngine{}, nil, nil, nil)
	for _, name := range []ToolName{"", "Go", "../go", "go tool"} {
		if _, err := env.Ensure(context.Background(), name, ModeNormal); !errors.Is(err, ErrInvalidTool) {
			t.Fatalf("name=%q: expected ErrInvalidTool, got %v", name, err)
		}
	}
}

func TestRunRecordsStatus(t *testing.T) {
	testlog.Start(t)
	rec := &fakeRecorder{}
	engine := &fakeEngine{status: 4}
	r := NewRunner(RunnerConfig{Engine: engine, Stdout: io.Discard, Stderr: io.Discard, Recorder: rec})
	if _, err := r.Run(context.Background(), Invocation{Tool: "go", MountRoot: "/src"}, ModeQuiet); err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]recordedRun{{tool: "go", status: 4}}, rec.runs, cmp.AllowUnexported(recordedRun{})); diff != "" {
		t.Fatalf("unexpected recorded runs (-want +got):\n%s", diff)
	}
}

func TestModeResolution(t *testing.T) {
	cases := []struct {
		traced, quiet bool
		want          Mode
	}{
		{false, false, ModeNormal},
		{false, true, ModeQuiet},
		{true, false, ModeTraced},
		{true, true, ModeTraced},
	}
	for _, tc := range cases {
		if got := ResolveMode(tc.traced, tc.quiet); got != tc.want {
			t.Fatalf("ResolveMode(%t, %t) = %s, want %s", tc.traced, tc.quiet, got, tc.want)
		}
	}
	if ModeNormal.Quieted() != ModeQuiet || ModeTraced.Quieted() != ModeTraced {
		t.Fatalf("unexpected scoped quiet resolution")
	}
}
