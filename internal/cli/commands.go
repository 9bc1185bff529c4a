package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/ockamctl/internal/platform"
)

type handler func(a *App) *cobra.Command

var handlers = map[Subcommand]handler{
	SubBinary:    (*App).binaryCmd,
	SubClean:     (*App).cleanCmd,
	SubHelp:      (*App).helpCmd,
	SubInstall:   (*App).installCmd,
	SubLint:      (*App).lintCmd,
	SubRelease:   (*App).releaseCmd,
	SubRun:       (*App).runCmd,
	SubTest:      (*App).testCmd,
	SubUninstall: (*App).uninstallCmd,
}

func (a *App) binaryCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   SubBinary.String(),
		Short: "Build the binary for the target platform (GOOS/GOARCH or host)",
		Args:  cobra.NoArgs,
		RunE: a.action(true, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			var (
				out string
				err error
			)
			if target != "" {
				p, perr := platform.Parse(target)
				if perr != nil {
					return perr
				}
				out, err = s.builder.BinaryFor(ctx, p, s.mode)
			} else {
				out, err = s.builder.Binary(ctx, s.mode)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&target, "platform", "", "build for os/arch instead of the resolved platform")
	return cmd
}

func (a *App) cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   SubClean.String(),
		Short: "Remove the build directory",
		Args:  cobra.NoArgs,
		RunE: a.action(false, func(_ context.Context, _ *cobra.Command, s *session, _ []string) error {
			return s.builder.Clean()
		}),
	}
}

func (a *App) helpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   SubHelp.String() + " [command]",
		Short: "Show help for ockamctl or one of its commands",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			if len(args) == 0 {
				return root.Help()
			}
			target, _, err := root.Find(args)
			if err != nil || target == root {
				fmt.Fprintf(cmd.ErrOrStderr(), "unknown help topic %q\n\n", args[0])
				_ = root.Help()
				return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
			}
			return target.Help()
		},
	}
}

func (a *App) installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   SubInstall.String(),
		Short: "Copy the host binary into the install directory",
		Long:  "Copy the host binary into the install directory. The binary must already be built.",
		Args:  cobra.NoArgs,
		RunE: a.action(false, func(_ context.Context, cmd *cobra.Command, s *session, _ []string) error {
			dst, err := s.installer.Install()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		}),
	}
}

func (a *App) lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   SubLint.String() + " [tool...]",
		Short: "Run the configured linters, or only the named ones",
		RunE: a.action(true, func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
			return s.builder.Lint(ctx, s.mode, args...)
		}),
	}
}

func (a *App) releaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   SubRelease.String(),
		Short: "Build the binary for every release platform",
		Args:  cobra.NoArgs,
		RunE: a.action(true, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			artifacts, err := s.builder.Release(ctx, s.mode)
			for _, art := range artifacts {
				fmt.Fprintln(cmd.OutOrStdout(), art.Path)
			}
			return err
		}),
	}
}

func (a *App) runCmd() *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   SubRun.String() + " [-i|--interactive] TOOL [args...]",
		Short: "Run a tool inside its environment",
		Long: `Run a tool inside its environment with the project mounted.
Everything after TOOL is passed to the tool unchanged. The tool's exit
status becomes ockamctl's exit status.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.action(true, func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
			_, err := s.builder.Run(ctx, s.mode, args[0], interactive, args[1:])
			return err
		}),
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "attach stdin (and a TTY when available)")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *App) testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   SubTest.String(),
		Short: "Run the test suite",
		Args:  cobra.NoArgs,
		RunE: a.action(true, func(ctx context.Context, _ *cobra.Command, s *session, _ []string) error {
			return s.builder.Test(ctx, s.mode)
		}),
	}
}

func (a *App) uninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   SubUninstall.String(),
		Short: "Remove the installed binary",
		Args:  cobra.NoArgs,
		RunE: a.action(false, func(_ context.Context, cmd *cobra.Command, s *session, _ []string) error {
			dst, err := s.installer.Uninstall()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		}),
	}
}
