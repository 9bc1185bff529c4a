package toolenv

import (
	"context"
	"fmt"

	"github.com/danmuck/ockamctl/internal/tools"
)

// DockerConfig configures the docker CLI engine.
type DockerConfig struct {
	// Binary defaults to "docker".
	Binary    string
	Namespace string
	// ContextDir is the build context holding one stage per tool.
	ContextDir string
	// Dockerfile is optional; docker defaults to ContextDir/Dockerfile.
	Dockerfile string
	MountPath  string
	BuildKit   bool
	Runner     tools.CommandRunner
}

// DockerEngine builds one Dockerfile stage per tool and runs tools in
// throwaway containers.
type DockerEngine struct {
	binary     string
	namespace  string
	contextDir string
	dockerfile string
	mountPath  string
	buildKit   bool
	runner     tools.CommandRunner
}

func NewDockerEngine(cfg DockerConfig) *DockerEngine {
	e := &DockerEngine{
		binary:     cfg.Binary,
		namespace:  cfg.Namespace,
		contextDir: cfg.ContextDir,
		dockerfile: cfg.Dockerfile,
		mountPath:  cfg.MountPath,
		buildKit:   cfg.BuildKit,
		runner:     cfg.Runner,
	}
	if e.binary == "" {
		e.binary = "docker"
	}
	if e.contextDir == "" {
		e.contextDir = "."
	}
	if e.mountPath == "" {
		e.mountPath = DefaultMountPath
	}
	if e.runner == nil {
		e.runner = tools.ExecRunner{}
	}
	return e
}

// DefaultMountPath is where the caller's project appears inside a tool.
const DefaultMountPath = "/project"

// Ensure runs `docker build --target NAME --tag TAG`. The docker build cache
// decides whether anything is rebuilt.
func (e *DockerEngine) Ensure(ctx context.Context, name ToolName, s Streams) (Handle, error) {
	tag := Tag(e.namespace, name)
	args := []string{"build", "--target", string(name), "--tag", tag}
	if e.dockerfile != "" {
		args = append(args, "--file", e.dockerfile)
	}
	args = append(args, e.contextDir)

	cmd := tools.Command{
		Name:   e.binary,
		Args:   args,
		Env:    []string{"DOCKER_BUILDKIT=" + boolEnv(e.buildKit)},
		Stdout: s.Stdout,
		Stderr: s.Stderr,
	}
	trace(s, cmd)
	status, err := e.runner.Run(ctx, cmd)
	if err != nil {
		return Handle{}, fmt.Errorf("docker build %s: %w", tag, err)
	}
	if status != 0 {
		return Handle{}, fmt.Errorf("docker build %s exited with status %d", tag, status)
	}
	return Handle{Tool: name, Tag: tag}, nil
}

// Exec runs `docker run --rm` with the mount root bound at the mount path.
// The container is removed when the tool exits.
func (e *DockerEngine) Exec(ctx context.Context, h Handle, inv Invocation, s Streams) (int, error) {
	cmd := tools.Command{
		Name:   e.binary,
		Args:   e.runArgs(h, inv, s),
		Stdout: s.Stdout,
		Stderr: s.Stderr,
	}
	if inv.Interactive {
		cmd.Stdin = s.Stdin
	}
	trace(s, cmd)
	status, err := e.runner.Run(ctx, cmd)
	if err != nil {
		return status, fmt.Errorf("docker run %s: %w", h.Tag, err)
	}
	return status, nil
}

func (e *DockerEngine) runArgs(h Handle, inv Invocation, s Streams) []string {
	args := []string{"run", "--rm"}
	if inv.Interactive {
		args = append(args, "--interactive")
		if s.TTY {
			args = append(args, "--tty")
		}
	}
	args = append(args,
		"--volume", inv.MountRoot+":"+e.mountPath,
		"--workdir", e.mountPath,
	)
	for _, kv := range inv.Env {
		args = append(args, "--env", kv)
	}
	args = append(args, h.Tag)
	return append(args, inv.Args...)
}

func boolEnv(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
