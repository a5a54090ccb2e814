package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent launch attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := cfg.OpenHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printInfo("No launches recorded yet")
				return nil
			}

			now := time.Now()
			t := newTable("When", "Version", "Player", "Outcome", "Took", "Java")
			for _, r := range records {
				outcome := StyleSuccess.Render(r.Outcome)
				if !r.Succeeded() {
					outcome = StyleError.Render(r.Outcome)
				}
				t.Row(
					formatRelativeTime(r.StartedAt, now),
					r.Version,
					r.Username,
					outcome,
					r.Duration.Round(100*time.Millisecond).String(),
					orDash(r.Java),
				)
			}
			printTable(cmd.OutOrStdout(), t)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of attempts to show")
	return cmd
}
