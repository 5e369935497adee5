package cmd

import (
	"fmt"
	"os"

	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd returns the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect finder configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSchemaCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the merged configuration and the files it came from",
		Long: `Shows the configuration after merging its layers:
1. Global config (~/.config/finder/finder.yml)
2. Project config (finder.yml, searched upward from the current directory)
3. Override files (finder.override.yml next to the project config)
With --config, only that file is loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)

			var (
				cfg    *config.Config
				layers []config.Layer
				err    error
			)
			if opts.ConfigFile != "" {
				cfg, err = config.Load(opts.ConfigFile)
				layers = []config.Layer{{Source: config.SourceProject, Path: opts.ConfigFile}}
			} else {
				var cwd string
				cwd, err = os.Getwd()
				if err != nil {
					return err
				}
				logger := logrus.New()
				logger.SetOutput(cmd.ErrOrStderr())
				logger.SetLevel(logrus.WarnLevel)
				if opts.Verbose {
					logger.SetLevel(logrus.DebugLevel)
				}
				cfg, layers, err = config.LoadFromWithLogger(cwd, logger)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.JSONOutput {
				return cli.PrintJSON(out, struct {
					Layers []config.Layer `json:"layers"`
					Config *config.Config `json:"config"`
				}{layers, cfg})
			}

			if len(layers) == 0 {
				fmt.Fprintln(out, "# No configuration files found; showing defaults")
			}
			for _, layer := range layers {
				fmt.Fprintf(out, "# %s: %s\n", layer.Source, layer.Path)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of finder.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
