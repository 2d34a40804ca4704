package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phrazzld/flatmap-maker/internal/config"
	"github.com/phrazzld/flatmap-maker/internal/pipeline"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
)

// flagKeys binds command-line flags to configuration keys.
var flagKeys = map[string]string{
	"labels.refresh":       "refresh-labels",
	"pipeline.error_check": "error-check",
	"pipeline.output_dir":  "output",
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "mapmaker MANIFEST",
		Short:        "Convert flatmap sources into layered GeoJSON and vector tiles",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{
				ConfigFile: configFile,
				Flags:      cmd.Flags(),
				FlagKeys:   flagKeys,
			})
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			log, err := logger.SetupWithWriter(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			log.Debug("configuration loaded",
				slog.String("output_dir", cfg.Pipeline.OutputDir),
				slog.String("labels_backend", cfg.Labels.Backend),
				slog.Bool("error_check", cfg.Pipeline.ErrorCheck),
				slog.Bool("tiles", cfg.Tiler.Enabled))

			p, err := pipeline.New(cfg, log)
			if err != nil {
				return err
			}
			res, err := p.Run(logger.WithLogger(cmd.Context(), log), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.Pipeline.ErrorCheck {
				_, err = fmt.Fprintf(out, "%s: no errors found\n", res.Flatmap.ID)
				return err
			}
			for _, f := range res.Files {
				if _, err := fmt.Fprintln(out, f); err != nil {
					return err
				}
			}
			if res.Tiles != nil {
				_, err = fmt.Fprintln(out, res.Tiles.Archive)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "configuration file (YAML, JSON or TOML)")
	flags.Bool("refresh-labels", false, "recompute every label placement instead of using the label cache")
	flags.Bool("error-check", false, "parse and check every source, report all errors and write nothing")
	flags.String("output", "", "directory receiving the generated files")
	return cmd
}
