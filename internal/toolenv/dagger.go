package toolenv

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"dagger.io/dagger"
)

// DaggerConfig configures the dagger engine.
type DaggerConfig struct {
	Namespace  string
	ContextDir string
	Dockerfile string
	MountPath  string
	// LogOutput receives engine progress; nil keeps it silent.
	LogOutput io.Writer
}

// DaggerEngine builds the same Dockerfile stages through a dagger engine
// session. The project is mounted as a snapshot, so declared outputs are
// exported back to the host after a successful run.
type DaggerEngine struct {
	client     *dagger.Client
	namespace  string
	contextDir string
	dockerfile string
	mountPath  string
	built      map[string]*dagger.Container
}

// ConnectDagger opens a dagger session. Close releases it.
func ConnectDagger(ctx context.Context, cfg DaggerConfig) (*DaggerEngine, error) {
	var opts []dagger.ClientOpt
	if cfg.LogOutput != nil {
		opts = append(opts, dagger.WithLogOutput(cfg.LogOutput))
	}
	client, err := dagger.Connect(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dagger connect: %w", err)
	}

	e := &DaggerEngine{
		client:     client,
		namespace:  cfg.Namespace,
		contextDir: cfg.ContextDir,
		dockerfile: cfg.Dockerfile,
		mountPath:  cfg.MountPath,
		built:      make(map[string]*dagger.Container),
	}
	if e.contextDir == "" {
		e.contextDir = "."
	}
	if e.mountPath == "" {
		e.mountPath = DefaultMountPath
	}
	return e, nil
}

func (e *DaggerEngine) Close() error {
	return e.client.Close()
}

// Ensure builds the tool's stage and forces evaluation so build failures
// surface here rather than at first run.
func (e *DaggerEngine) Ensure(ctx context.Context, name ToolName, s Streams) (Handle, error) {
	tag := Tag(e.namespace, name)
	opts := dagger.DirectoryDockerBuildOpts{Target: string(name)}
	if e.dockerfile != "" {
		rel, err := filepath.Rel(e.contextDir, e.dockerfile)
		if err != nil || strings.HasPrefix(rel, "..") {
			return Handle{}, fmt.Errorf("dockerfile %s must live under %s", e.dockerfile, e.contextDir)
		}
		opts.Dockerfile = filepath.ToSlash(rel)
	}
	if s.Trace != nil {
		fmt.Fprintf(s.Trace, "+ dagger docker-build --target %s %s\n", name, e.contextDir)
	}

	ctr := e.client.Host().Directory(e.contextDir).DockerBuild(opts)
	ctr, err := ctr.Sync(ctx)
	if err != nil {
		if s.Stderr != nil {
			fmt.Fprintln(s.Stderr, err.Error())
		}
		return Handle{}, fmt.Errorf("dagger build %s: %w", tag, err)
	}
	e.built[tag] = ctr
	return Handle{Tool: name, Tag: tag}, nil
}

// Exec runs inv in the environment built by the latest Ensure for h.
func (e *DaggerEngine) Exec(ctx context.Context, h Handle, inv Invocation, s Streams) (int, error) {
	if inv.Interactive {
		return 0, ErrInteractiveUnsupported
	}
	ctr, ok := e.built[h.Tag]
	if !ok {
		return 0, fmt.Errorf("dagger: environment %s was not ensured", h.Tag)
	}

	project := e.client.Host().Directory(inv.MountRoot, dagger.HostDirectoryOpts{
		Exclude: []string{".git"},
	})
	ctr = ctr.WithMountedDirectory(e.mountPath, project).WithWorkdir(e.mountPath)
	for _, kv := range inv.Env {
		k, v, _ := strings.Cut(kv, "=")
		ctr = ctr.WithEnvVariable(k, v)
	}
	if s.Trace != nil {
		fmt.Fprintf(s.Trace, "+ dagger exec %s %s\n", h.Tag, strings.Join(inv.Args, " "))
	}
	ctr = ctr.WithExec(inv.Args, dagger.ContainerWithExecOpts{
		UseEntrypoint: true,
		Expect:        dagger.ReturnTypeAny,
	})

	status, err := ctr.ExitCode(ctx)
	if err != nil {
		return 0, fmt.Errorf("dagger exec %s: %w", h.Tag, err)
	}
	stdout, err := ctr.Stdout(ctx)
	if err != nil {
		return status, fmt.Errorf("dagger stdout %s: %w", h.Tag, err)
	}
	stderr, err := ctr.Stderr(ctx)
	if err != nil {
		return status, fmt.Errorf("dagger stderr %s: %w", h.Tag, err)
	}
	// Output arrives whole after the process exits; dagger runs never stream.
	if s.Stdout != nil {
		_, _ = io.WriteString(s.Stdout, stdout)
	}
	if s.Stderr != nil {
		_, _ = io.WriteString(s.Stderr, stderr)
	}
	if status != 0 {
		return status, nil
	}

	for _, out := range inv.Outputs {
		src := path.Join(e.mountPath, filepath.ToSlash(out))
		dst := filepath.Join(inv.MountRoot, out)
		if _, err := ctr.Directory(src).Export(ctx, dst); err != nil {
			return status, fmt.Errorf("dagger export %s: %w", out, err)
		}
	}
	return status, nil
}
