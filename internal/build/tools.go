package build

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/ockamctl/internal/config"
	"github.com/danmuck/ockamctl/internal/toolenv"
)

var ErrUnknownLinter = fmt.Errorf("%w: unknown linter", config.ErrInvalidConfig)

// Lint runs the named linters, or every configured linter when names is
// empty, in order. Linters run quieted so only failures are shown. The first
// failing linter stops the run.
func (b *Builder) Lint(ctx context.Context, mode toolenv.Mode, names ...string) error {
	linters, err := b.selectLinters(names)
	if err != nil {
		return err
	}
	scoped := mode.Quieted()
	for _, l := range linters {
		tool := toolenv.ToolName(l.Name)
		log.Info().Msgf("build.lint tool=%s", tool)
		res, err := b.runner.Run(ctx, toolenv.Invocation{
			Tool:      tool,
			Args:      l.Args,
			MountRoot: b.root,
		}, scoped)
		if err != nil {
			return err
		}
		if err := res.Err(tool); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) selectLinters(names []string) ([]config.Linter, error) {
	if len(names) == 0 {
		return b.cfg.Linters, nil
	}
	out := make([]config.Linter, 0, len(names))
	for _, name := range names {
		l, ok := b.cfg.Linter(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLinter, name)
		}
		out = append(out, l)
	}
	return out, nil
}

// Test runs the project test suite with the go tool.
func (b *Builder) Test(ctx context.Context, mode toolenv.Mode) error {
	res, err := b.runner.Run(ctx, toolenv.Invocation{
		Tool:      goTool,
		Args:      b.cfg.TestArgs,
		MountRoot: b.root,
	}, mode)
	if err != nil {
		return err
	}
	return res.Err(goTool)
}

// Run runs an arbitrary tool with args and returns its result. A non-zero
// status is reported through the returned error.
func (b *Builder) Run(ctx context.Context, mode toolenv.Mode, tool string, interactive bool, args []string) (toolenv.Result, error) {
	name := toolenv.ToolName(tool)
	res, err := b.runner.Run(ctx, toolenv.Invocation{
		Tool:        name,
		Args:        args,
		Interactive: interactive,
		MountRoot:   b.root,
	}, mode)
	if err != nil {
		return res, err
	}
	return res, res.Err(name)
}
