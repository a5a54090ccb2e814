package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/craftlaunch/pkg/manifest"
)

// versionsCommand creates the versions command.
func (c *CLI) versionsCommand() *cobra.Command {
	var (
		typ     string
		limit   int
		refresh bool
		idsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List available Minecraft versions",
		Example: `  craftlaunch versions --type release --limit 10
  craftlaunch versions --type old_beta --ids`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			svc, err := c.openServices(ctx, refresh)
			if err != nil {
				return err
			}
			defer svc.Close()

			sw := newStopwatch(logger)
			sp := newSpinner(ctx, "Fetching version list")
			sp.Start()
			m, err := svc.catalog.Versions(ctx)
			sp.Stop()
			if err != nil {
				return err
			}

			list := m.Filter(typ)
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}

			out := cmd.OutOrStdout()
			if idsOnly {
				for _, v := range list {
					fmt.Fprintln(out, v.ID)
				}
				return nil
			}

			t := newTable("Version", "Type", "Released", "")
			for _, v := range list {
				t.Row(v.ID, v.Type, releaseDate(v.ReleaseTime), latestMark(m.Latest, v.ID))
			}
			printTable(out, t)
			sw.done(fmt.Sprintf("Listed %d of %d versions", len(list), len(m.Versions)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "only list this type (release, snapshot, old_beta, old_alpha)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "list at most n versions (0 for all)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached version list")
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "print only version ids, one per line")

	return cmd
}

// releaseDate trims an RFC 3339 timestamp to its date.
func releaseDate(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return orDash(s)
	}
	return t.Format("2006-01-02")
}

func latestMark(l manifest.Latest, id string) string {
	switch id {
	case l.Release:
		return StyleSuccess.Render("latest release")
	case l.Snapshot:
		return StyleWarning.Render("latest snapshot")
	}
	return ""
}
