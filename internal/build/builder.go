package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/ockamctl/internal/artifact"
	"github.com/danmuck/ockamctl/internal/config"
	"github.com/danmuck/ockamctl/internal/platform"
	"github.com/danmuck/ockamctl/internal/release"
	"github.com/danmuck/ockamctl/internal/toolenv"
	"github.com/danmuck/ockamctl/internal/version"
)

const goTool toolenv.ToolName = "go"

// ToolRunner runs one tool invocation inside its environment.
type ToolRunner interface {
	Run(ctx context.Context, inv toolenv.Invocation, mode toolenv.Mode) (toolenv.Result, error)
}

// ArtifactRecorder is notified after each successful binary build.
type ArtifactRecorder interface {
	ArtifactBuilt(osName, arch string)
}

type nopArtifacts struct{}

func (nopArtifacts) ArtifactBuilt(string, string) {}

// Options wires a Builder.
type Options struct {
	Config  config.Config
	Runner  ToolRunner
	Guesser *platform.Guesser
	// Recorder may be nil.
	Recorder ArtifactRecorder
	// Root is the project directory mounted into tool environments. Empty
	// means the current working directory.
	Root string
}

// Builder runs the build flows for one project.
type Builder struct {
	cfg      config.Config
	runner   ToolRunner
	guesser  *platform.Guesser
	recorder ArtifactRecorder
	root     string
	vendored bool
}

func New(opts Options) (*Builder, error) {
	if opts.Runner == nil {
		return nil, errors.New("build: runner is required")
	}
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	guesser := opts.Guesser
	if guesser == nil {
		guesser = platform.NewGuesser(opts.Config.Env.Overrides, nil)
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopArtifacts{}
	}
	return &Builder{
		cfg:      opts.Config,
		runner:   opts.Runner,
		guesser:  guesser,
		recorder: recorder,
		root:     root,
	}, nil
}

// Binary builds the project for the resolved target platform.
func (b *Builder) Binary(ctx context.Context, mode toolenv.Mode) (string, error) {
	target, err := b.guesser.Resolve()
	if err != nil {
		return "", err
	}
	return b.BinaryFor(ctx, target, mode)
}

// BinaryFor builds the project for target and returns the artifact path,
// relative to the project root when the build directory is.
func (b *Builder) BinaryFor(ctx context.Context, target platform.Platform, mode toolenv.Mode) (string, error) {
	if err := target.Validate(); err != nil {
		return "", err
	}
	ver, err := version.FromFile(b.hostPath(b.cfg.VersionFile))
	if err != nil {
		return "", err
	}
	if err := b.ensureVendored(ctx, mode); err != nil {
		return "", err
	}

	out := artifact.Path(b.cfg.Package, ver, target.OS, target.Arch, b.cfg.BuildDir)
	if err := os.MkdirAll(b.hostPath(b.cfg.BuildDir), 0o755); err != nil {
		return "", fmt.Errorf("create build dir: %w", err)
	}

	log.Info().Msgf("build.binary package=%s version=%s platform=%s out=%s", b.cfg.Package, ver, target, out)
	res, err := b.runner.Run(ctx, toolenv.Invocation{
		Tool: goTool,
		Args: []string{
			"build", "-mod=vendor",
			"-ldflags", "-s -w",
			"-o", out,
			b.cfg.MainPackage,
		},
		Env:       []string{"GOOS=" + target.OS, "GOARCH=" + target.Arch},
		MountRoot: b.root,
		Outputs:   []string{b.cfg.BuildDir},
	}, mode)
	if err != nil {
		return "", err
	}
	if err := res.Err(goTool); err != nil {
		return "", err
	}
	b.recorder.ArtifactBuilt(target.OS, target.Arch)
	return out, nil
}

// Release builds every configured platform in order, stopping at the first
// failure, then writes the release manifest.
func (b *Builder) Release(ctx context.Context, mode toolenv.Mode) ([]release.Artifact, error) {
	platforms := b.cfg.Platforms
	if len(platforms) == 0 {
		platforms = release.DefaultPlatforms()
	}
	artifacts, err := release.Run(ctx, platforms, func(ctx context.Context, p platform.Platform) (string, error) {
		return b.BinaryFor(ctx, p, mode)
	})
	if err != nil {
		return artifacts, err
	}
	ver, err := version.FromFile(b.hostPath(b.cfg.VersionFile))
	if err != nil {
		return artifacts, err
	}
	path, err := release.WriteManifest(b.hostPath(b.cfg.BuildDir), release.Manifest{
		Package:   b.cfg.Package,
		Version:   ver,
		Artifacts: artifacts,
	})
	if err != nil {
		return artifacts, err
	}
	log.Info().Msgf("build.release artifacts=%d manifest=%s", len(artifacts), path)
	return artifacts, nil
}

// Clean removes the build directory. A missing directory is not an error.
func (b *Builder) Clean() error {
	dir := b.hostPath(b.cfg.BuildDir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clean %s: %w", dir, err)
	}
	log.Debug().Msgf("build.clean dir=%s", dir)
	return nil
}

// ensureVendored runs `go mod vendor` when the vendor directory is absent.
func (b *Builder) ensureVendored(ctx context.Context, mode toolenv.Mode) error {
	if b.vendored {
		return nil
	}
	_, err := os.Stat(b.hostPath(b.cfg.VendorDir))
	switch {
	case err == nil:
		b.vendored = true
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	log.Info().Msgf("build.vendor dir=%s", b.cfg.VendorDir)
	res, err := b.runner.Run(ctx, toolenv.Invocation{
		Tool:      goTool,
		Args:      []string{"mod", "vendor"},
		MountRoot: b.root,
		Outputs:   []string{b.cfg.VendorDir},
	}, mode)
	if err != nil {
		return err
	}
	if err := res.Err(goTool); err != nil {
		return err
	}
	b.vendored = true
	return nil
}

func (b *Builder) hostPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.root, p)
}
