package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/logging"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/pkg/scenarios/file"
	"github.com/spf13/cobra"
)

// NewScenariosCmd returns the scenarios command group.
func NewScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenarios",
		Aliases: []string{"sc"},
		Short:   "Manage saved search scenarios",
		Long: `Manage the ordered list of saved search scenarios. Scenarios are
addressed by their zero-based position, as shown by 'finder scenarios list'.

Changes go through the daemon when it is running, so connected clients are
notified; otherwise the scenario file is edited directly.`,
	}

	cmd.AddCommand(
		newScenariosListCmd(),
		newScenariosAddCmd(),
		newScenariosUpdateCmd(),
		newScenariosRemoveCmd(),
		newScenariosResetCmd(),
		newScenariosImportCmd(),
		newScenariosExportCmd(),
		newScenariosSchemaCmd(),
		newScenariosWatchCmd(),
	)
	return cmd
}

// scenarioFlags registers the flags that describe a scenario.
func scenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("name", "n", "", "Display name (defaults to the directory name)")
	cmd.Flags().StringP("level", "l", string(models.LevelAll), "Depth: top or all")
	cmd.Flags().StringP("target", "t", string(models.TargetBoth), "Entries to return: folders, files, or both")
	cmd.Flags().StringP("ext", "e", "", "Comma-separated file extensions, without dots (empty means any)")
}

// scenarioFromFlags builds a scenario from path and the scenario flags.
// The path is made absolute so saved scenarios do not depend on the cwd.
func scenarioFromFlags(cmd *cobra.Command, path string) (models.SearchScenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.SearchScenario{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid path").
			WithDetail("path", path)
	}

	levelFlag, _ := cmd.Flags().GetString("level")
	level, err := models.ParseLevel(levelFlag)
	if err != nil {
		return models.SearchScenario{}, errors.Wrap(err, errors.ErrCodeInvalidInput, err.Error())
	}
	targetFlag, _ := cmd.Flags().GetString("target")
	target, err := models.ParseTarget(targetFlag)
	if err != nil {
		return models.SearchScenario{}, errors.Wrap(err, errors.ErrCodeInvalidInput, err.Error())
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = filepath.Base(abs)
	}
	ext, _ := cmd.Flags().GetString("ext")

	return models.SearchScenario{
		Name:           name,
		Path:           abs,
		Level:          level,
		Target:         target,
		FileExtensions: ext,
	}, nil
}

func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("index must be a number, got %q", arg))
	}
	return index, nil
}

func newScenariosListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved scenarios",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			list, err := client.Scenarios(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), list)
			}
			cli.RenderScenarios(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newScenariosAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Append a scenario to the list",
		Example: `  finder scenarios add ~/notes --ext md,txt --target files
  finder scenarios add /srv/www --name Sites --level top --target folders`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := scenarioFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Add(cmd.Context(), scenario); err != nil {
				return err
			}
			list, err := client.Scenarios(cmd.Context())
			if err != nil {
				return err
			}
			return printChange(cmd, list, fmt.Sprintf("Added %q at index %d", scenario.Name, len(list)-1))
		},
	}
	scenarioFlags(cmd)
	return cmd
}

func newScenariosUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <index> <path>",
		Short: "Replace the scenario at an index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			scenario, err := scenarioFromFlags(cmd, args[1])
			if err != nil {
				return err
			}
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.UpdateAt(cmd.Context(), index, scenario); err != nil {
				return err
			}
			list, err := client.Scenarios(cmd.Context())
			if err != nil {
				return err
			}
			return printChange(cmd, list, fmt.Sprintf("Updated index %d", index))
		},
	}
	scenarioFlags(cmd)
	return cmd
}

func newScenariosRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"rm"},
		Short:   "Remove the scenario at an index",
		Long:    "Remove the scenario at an index. Later scenarios shift down by one.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.RemoveAt(cmd.Context(), index); err != nil {
				return err
			}
			list, err := client.Scenarios(cmd.Context())
			if err != nil {
				return err
			}
			return printChange(cmd, list, fmt.Sprintf("Removed index %d", index))
		},
	}
}

func newScenariosResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove every scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Reset(cmd.Context()); err != nil {
				return err
			}
			return printChange(cmd, nil, "Cleared all scenarios")
		},
	}
}

func newScenariosImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load scenarios from a YAML, TOML or JSON file",
		Long: `Load scenarios from a YAML, TOML or JSON file. The file is validated
against the scenario file schema before anything changes. By default the
imported scenarios replace the current list; --append adds them to the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return errors.PathNotFound(args[0])
			}
			imported, err := file.Load(args[0])
			if err != nil {
				return err
			}

			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			appendMode, _ := cmd.Flags().GetBool("append")
			if appendMode {
				for _, s := range imported {
					if err := client.Add(ctx, s); err != nil {
						return err
					}
				}
			} else if err := client.SetAll(ctx, imported); err != nil {
				return err
			}

			list, err := client.Scenarios(ctx)
			if err != nil {
				return err
			}
			return printChange(cmd, list, fmt.Sprintf("Imported %d scenarios from %s", len(imported), args[0]))
		},
	}
	cmd.Flags().Bool("append", false, "Append instead of replacing the current list")
	return cmd
}

func newScenariosExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the scenarios to a file or stdout",
		Long: `Write the scenarios to a file, choosing the format from its extension.
Without a file the list is written to stdout in the --format format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			list, err := client.Scenarios(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				if err := file.Save(args[0], list); err != nil {
					return err
				}
				logging.NewPrettyLogger().WithWriter(cmd.ErrOrStderr()).Success("Exported %d scenarios to %s", len(list), args[0])
				return nil
			}

			format, _ := cmd.Flags().GetString("format")
			data, err := file.Encode(list, file.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringP("format", "f", string(file.FormatYAML), "Output format without a file: yaml, toml, or json")
	return cmd
}

func newScenariosSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of scenario files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := file.Schema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newScenariosWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the scenario list every time it changes",
		Long: `Print the scenario list every time it changes, until interrupted.
With --json each update is printed as one JSON object per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			updates, err := client.StreamScenarios(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			jsonOutput := cli.GetOptions(cmd).JSONOutput
			for u := range updates {
				if jsonOutput {
					if err := printJSONLine(out, u); err != nil {
						return err
					}
					continue
				}
				if u.Type == models.UpdateSearch || u.Type == models.UpdateConfigReload {
					continue
				}
				fmt.Fprintln(out, cli.DefaultTheme.Muted.Render(fmt.Sprintf("-- %s (version %d)", u.Type, u.Version)))
				cli.RenderScenarios(out, u.Scenarios)
			}
			return nil
		},
	}
}

// printChange reports a mutation: the new list as JSON with --json,
// otherwise a success line followed by the list.
func printChange(cmd *cobra.Command, list []models.SearchScenario, message string) error {
	if list == nil {
		list = []models.SearchScenario{}
	}
	if cli.GetOptions(cmd).JSONOutput {
		return cli.PrintJSON(cmd.OutOrStdout(), list)
	}
	logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("%s", message)
	if len(list) > 0 {
		cli.RenderScenarios(cmd.OutOrStdout(), list)
	}
	return nil
}
