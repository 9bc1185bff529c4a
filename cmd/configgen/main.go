package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/ockamctl/internal/config"
	"github.com/danmuck/ockamctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd(os.LookupEnv).Execute(); err != nil {
		log.Error().Msgf("configgen: %v", err)
		os.Exit(1)
	}
}

func newRootCmd(lookup func(string) (string, bool)) *cobra.Command {
	var (
		output   string
		input    string
		validate bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:               "configgen",
		Short:             "Write or validate an ockamctl.toml project config",
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if validate {
				cfg, err := config.Load(input, true, lookup)
				if err != nil {
					return err
				}
				log.Info().Msgf("validated %s package=%s engine=%s platforms=%d linters=%d",
					input, cfg.Package, cfg.Tools.Engine, len(cfg.Platforms), len(cfg.Linters))
				return nil
			}
			if err := config.WriteTemplate(output, force); err != nil {
				return err
			}
			log.Info().Msgf("wrote config template to %s", output)
			return nil
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.Flags().StringVar(&output, "output", config.DefaultPath, "output path for config template")
	cmd.Flags().StringVar(&input, "input", config.DefaultPath, "config path for validation")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate an existing config file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}
