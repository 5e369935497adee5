package cmd

import (
	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/logging"
	"github.com/grovetools/finder/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the directories and files finder uses.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	StateDir   string `json:"state_dir"`
	CacheDir   string `json:"cache_dir"`
	RuntimeDir string `json:"runtime_dir"`
	Socket     string `json:"socket"`
	PidFile    string `json:"pid_file"`
	DaemonLog  string `json:"daemon_log"`
}

// NewPathsCmd returns the paths command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the directories finder uses",
		Long: `Print the directories finder uses. They follow the XDG Base Directory
Specification; FINDER_HOME moves all of them under one directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				StateDir:   paths.StateDir(),
				CacheDir:   paths.CacheDir(),
				RuntimeDir: paths.RuntimeDir(),
				Socket:     paths.SocketPath(),
				PidFile:    paths.PidFilePath(),
				DaemonLog:  paths.DaemonLogPath(),
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), output)
			}
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Path("config", output.ConfigDir)
			pretty.Path("state", output.StateDir)
			pretty.Path("cache", output.CacheDir)
			pretty.Path("runtime", output.RuntimeDir)
			pretty.Path("socket", output.Socket)
			pretty.Path("pid file", output.PidFile)
			pretty.Path("daemon log", output.DaemonLog)
			return nil
		},
	}
}
