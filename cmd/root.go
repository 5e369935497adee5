// Package cmd implements the finder command line.
package cmd

import (
	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/config"
	"github.com/grovetools/finder/pkg/daemon"
	"github.com/grovetools/finder/pkg/profiling"
	"github.com/grovetools/finder/version"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the finder command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"finder",
		"Search the filesystem with saved search scenarios",
	)
	root.Long = `finder keeps an ordered list of saved search scenarios (a root path,
a depth level, an entry type and an extension filter) and runs name
searches against them. A daemon can own the list so that editors and
other tools see every change as it happens.

Examples:
  # Save a scenario and search it
  finder scenarios add ~/src --name Code --level all --target files --ext go,md
  finder search handler --scenario 0

  # Ad-hoc search without saving anything
  finder search readme --path . --target files`

	cli.SetVersionTemplate(root, version.GetInfo())
	profiling.NewCobraProfiler().Attach(root)

	root.AddCommand(
		NewScenariosCmd(),
		NewSearchCmd(),
		NewHistoryCmd(),
		NewDaemonCmd(),
		NewLogsCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand(version.GetInfo()),
	)
	cli.ApplyStyledHelpRecursive(root)
	return root
}

// newClient loads configuration and returns a client for it: the daemon when
// it is reachable, otherwise the scenario file directly.
func newClient(cmd *cobra.Command) (daemon.Client, *config.Config, error) {
	defer profiling.Start("client").Stop()
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	client := daemon.New(cfg)
	cli.GetLogger(cmd).WithField("daemon", client.IsRunning()).Debug("Client ready")
	return client, cfg, nil
}
