package cmd

import (
	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/logging"
	"github.com/spf13/cobra"
)

// NewHistoryCmd returns the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear recorded searches",
		Long: `Show recorded searches, newest first. Searches are recorded when
storage.history is enabled (the default).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if clearAll, _ := cmd.Flags().GetBool("clear"); clearAll {
				n, err := client.ClearHistory(ctx)
				if err != nil {
					return err
				}
				if cli.GetOptions(cmd).JSONOutput {
					return cli.PrintJSON(out, map[string]int64{"deleted": n})
				}
				logging.NewPrettyLogger().WithWriter(out).Success("Deleted %d history entries", n)
				return nil
			}

			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := client.History(ctx, limit)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(out, entries)
			}
			cli.RenderHistory(out, entries)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of entries (0 for all)")
	cmd.Flags().Bool("clear", false, "Delete all recorded searches")
	return cmd
}
