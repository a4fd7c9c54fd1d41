package cmds

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewHistoryCLI() *cobra.Command {
	var (
		limit int
		top   bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently watched channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			if top {
				items, err := c.history.MostWatched(ctx, limit)
				if err != nil {
					return err
				}
				return printHistory(cmd, items)
			}
			items, err := c.history.Recent(ctx, limit)
			if err != nil {
				return err
			}
			return printHistory(cmd, items)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries (-1 for all)")
	cmd.Flags().BoolVar(&top, "top", false, "order by watch time instead of recency")
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Summarise the watch history",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				c, err := openClient()
				if err != nil {
					return err
				}
				defer c.Close()
				st, err := c.history.Stats(ctx)
				if err != nil {
					return err
				}
				last, err := c.history.LastChannel(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "channels watched: %d\n", st.TotalChannelsWatched)
				fmt.Fprintf(out, "total time:       %s\n", st.TotalWatchTime.Round(time.Second))
				fmt.Fprintf(out, "average session:  %s\n", st.AverageSession.Round(time.Second))
				fmt.Fprintf(out, "favorite group:   %s\n", st.MostWatchedGroup)
				fmt.Fprintf(out, "last channel:     %s\n", last)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget watched channels (total watch time is kept)",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := openClient()
				if err != nil {
					return err
				}
				defer c.Close()
				return c.history.Clear(cmd.Context())
			},
		},
	)
	return cmd
}
