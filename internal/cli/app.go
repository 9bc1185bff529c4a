// Package cli wires the ockamctl subcommands to the build flows.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/ockamctl/internal/build"
	"github.com/danmuck/ockamctl/internal/config"
	"github.com/danmuck/ockamctl/internal/failure"
	"github.com/danmuck/ockamctl/internal/logging"
	"github.com/danmuck/ockamctl/internal/observability"
	"github.com/danmuck/ockamctl/internal/platform"
	"github.com/danmuck/ockamctl/internal/toolenv"
)

var ErrUnknownCommand = errors.New("unknown command")

// App holds the process-level inputs shared by every subcommand. Zero values
// fall back to the real process: os streams, os.LookupEnv, uname, the
// configured tool engine and the working directory.
type App struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	Host      platform.Host
	// Engine replaces the configured tool engine.
	Engine     toolenv.Engine
	IsTerminal func() bool
	Root       string

	configPath string
}

// session is the state one subcommand runs with.
type session struct {
	cfg       config.Config
	mode      toolenv.Mode
	root      string
	metrics   *observability.Metrics
	builder   *build.Builder
	installer *build.Installer
	release   func() error
}

// Execute runs the command line args (without the program name).
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.Command()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Command builds the cobra command tree.
func (a *App) Command() *cobra.Command {
	a.defaults()
	root := &cobra.Command{
		Use:   "ockamctl",
		Short: "Build, lint, test and release inside reproducible tool environments",
		Long: `ockamctl runs the project toolchain inside isolated tool environments,
one per tool, tagged deterministically so repeated builds reuse the cache.

Environment:
  GOOS, GOARCH       target platform overrides
  DOCKER_BUILDKIT    build accelerator for tool environments (default on)
  TRACE              show every build and run command
  OCKAM_TOOL_QUIET   hide tool output unless the tool fails`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return fmt.Errorf("%w: no subcommand given", ErrUnknownCommand)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "unknown command %q\n\n", args[0])
			_ = cmd.Help()
			return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "project config file")

	for _, s := range Subcommands() {
		cmd := handlers[s](a)
		if s == SubHelp {
			root.SetHelpCommand(cmd)
			continue
		}
		root.AddCommand(cmd)
	}
	return root
}

func (a *App) defaults() {
	if a.Stdin == nil {
		a.Stdin = os.Stdin
	}
	if a.Stdout == nil {
		a.Stdout = os.Stdout
	}
	if a.Stderr == nil {
		a.Stderr = os.Stderr
	}
	if a.LookupEnv == nil {
		a.LookupEnv = os.LookupEnv
	}
}

// action runs fn inside a session, logging under a per-run id and writing
// the metrics textfile when one is configured. Errors are returned
// unlogged; main reports them once.
func (a *App) action(needTools bool, fn func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger, runID := observability.RunLogger(cmd.Name())
		prev := log.Logger
		log.Logger = logger
		defer func() { log.Logger = prev }()

		ctx := cmd.Context()
		s, err := a.open(ctx, cmd, needTools)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.release(); err != nil {
				log.Warn().Msgf("cli.engine close err=%v", err)
			}
		}()

		start := time.Now()
		err = fn(ctx, cmd, s, args)
		log.Debug().Msgf("cli.done run=%s mode=%s kind=%s took=%s",
			runID, s.mode, failure.Kind(err), time.Since(start).Round(time.Millisecond))
		if path := s.cfg.MetricsFile; path != "" {
			if werr := s.metrics.WriteTextfile(s.path(path)); werr != nil {
				log.Warn().Msgf("cli.metrics path=%s err=%v", path, werr)
			}
		}
		return err
	}
}

func (a *App) open(ctx context.Context, cmd *cobra.Command, needTools bool) (*session, error) {
	root := a.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	s := &session{root: root, metrics: observability.NewMetrics(), release: func() error { return nil }}

	required := cmd.Flags().Changed("config")
	cfg, err := config.Load(s.path(a.configPath), required, a.LookupEnv)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	s.mode = cfg.Mode()
	if s.mode.Traced() {
		logging.Trace()
	}
	log.Debug().Msgf("cli.start mode=%s engine=%s config=%s", s.mode, cfg.Tools.Engine, a.configPath)

	guesser := platform.NewGuesser(cfg.Env.Overrides, a.Host)
	s.installer, err = build.NewInstaller(cfg, guesser, root)
	if err != nil {
		return nil, err
	}
	if !needTools {
		s.builder, err = build.New(build.Options{Config: cfg, Runner: noTools{}, Guesser: guesser, Root: root})
		return s, err
	}

	engine := a.Engine
	if engine == nil {
		engine, s.release, err = a.openEngine(ctx, s)
		if err != nil {
			return nil, err
		}
	}
	runner := toolenv.NewRunner(toolenv.RunnerConfig{
		Engine:     engine,
		Stdin:      a.Stdin,
		Stdout:     a.Stdout,
		Stderr:     a.Stderr,
		LookupEnv:  a.LookupEnv,
		IsTerminal: a.IsTerminal,
		Recorder:   s.metrics,
	})
	s.builder, err = build.New(build.Options{
		Config:   cfg,
		Runner:   runner,
		Guesser:  guesser,
		Recorder: s.metrics,
		Root:     root,
	})
	if err != nil {
		_ = s.release()
		return nil, err
	}
	return s, nil
}

func (a *App) openEngine(ctx context.Context, s *session) (toolenv.Engine, func() error, error) {
	tools := s.cfg.Tools
	dockerfile := tools.Dockerfile
	if dockerfile != "" {
		dockerfile = s.path(dockerfile)
	}
	var daggerLog io.Writer
	if s.mode.Traced() {
		daggerLog = a.Stderr
	}
	return toolenv.OpenEngine(ctx, tools.Engine,
		toolenv.DockerConfig{
			Binary:     tools.Docker,
			Namespace:  tools.Namespace,
			ContextDir: s.path(tools.ContextDir),
			Dockerfile: dockerfile,
			MountPath:  tools.MountPath,
			BuildKit:   tools.BuildKit,
		},
		toolenv.DaggerConfig{
			Namespace:  tools.Namespace,
			ContextDir: s.path(tools.ContextDir),
			Dockerfile: dockerfile,
			MountPath:  tools.MountPath,
			LogOutput:  daggerLog,
		},
	)
}

func (s *session) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, p)
}

// noTools backs subcommands that never run a tool.
type noTools struct{}

func (noTools) Run(context.Context, toolenv.Invocation, toolenv.Mode) (toolenv.Result, error) {
	return toolenv.Result{}, errors.New("cli: no tool engine for this subcommand")
}
