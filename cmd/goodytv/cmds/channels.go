package cmds

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/voyagen/goodytv/internal/entitlement"
	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/schedule"
)

func NewChannelsCLI() *cobra.Command {
	var (
		playlistID string
		group      string
		favorites  bool
	)
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List channels with what is on now and next",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			res, err := c.load(ctx, playlistID)
			if err != nil {
				return err
			}
			channels := res.Channels
			if favorites {
				if channels, err = c.refresher.Favorites(ctx, channels); err != nil {
					return err
				}
			}

			now := time.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHANNEL\tGROUP\tNOW\tNEXT")
			for _, ch := range channels {
				if group != "" && !strings.EqualFold(ch.GroupName(), group) {
					continue
				}
				cur, next := schedule.NowNext(ch, res.Schedule, now)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ch.Name, ch.GroupName(), cur, next)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&playlistID, "playlist", "", "switch to this playlist id before listing")
	cmd.Flags().StringVar(&group, "group", "", "only channels in this group")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorite channels")
	return cmd
}

func NewGuideCLI() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "guide CHANNEL",
		Short: "Show upcoming programmes for a channel (premium)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.paywall.StartTrial(ctx); err != nil {
				return err
			}
			if st, err := c.paywall.State(ctx); err != nil {
				return err
			} else if st == entitlement.TrialExpired {
				return fmt.Errorf("trial expired: run `goodytv purchase` or `goodytv unlock CODE`")
			}

			res, err := c.load(ctx, "")
			if err != nil {
				return err
			}
			ch, err := findChannel(res.Channels, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			progs := schedule.Upcoming(ch, res.Schedule, time.Now(), limit)
			if len(progs) == 0 {
				fmt.Fprintf(out, "%s: no guide data\n", ch.Name)
				return nil
			}
			for _, p := range progs {
				fmt.Fprintf(out, "%s-%s  %s\n", p.Start.Local().Format("Mon 15:04"), p.Stop.Local().Format("15:04"), p.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of programmes")
	return cmd
}

func NewPlayCLI() *cobra.Command {
	var watched time.Duration
	cmd := &cobra.Command{
		Use:   "play CHANNEL",
		Short: "Print a channel's stream URL and record it in the watch history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			res, err := c.load(ctx, "")
			if err != nil {
				return err
			}
			ch, err := findChannel(res.Channels, args[0])
			if err != nil {
				return err
			}
			if err := c.prefs.SetLastURL(ctx, ch.URL); err != nil {
				return err
			}
			if err := c.history.Record(ctx, ch, watched); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ch.URL)
			return nil
		},
	}
	cmd.Flags().DurationVar(&watched, "watched", 0, "time spent watching, added to the history totals")
	return cmd
}

func NewFavoriteCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite CHANNEL",
		Short: "Toggle a channel in the favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			res, err := c.load(ctx, "")
			if err != nil {
				return err
			}
			ch, err := findChannel(res.Channels, args[0])
			if err != nil {
				return err
			}
			on, err := c.prefs.ToggleFavorite(ctx, ch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: favorite=%v\n", ch.Name, on)
			return nil
		},
	}
}

// printHistory is shared by the history subcommands.
func printHistory(cmd *cobra.Command, items []models.WatchHistoryItem) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tGROUP\tLAST WATCHED\tDURATION")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ChannelName, it.ChannelGroup,
			it.LastWatched.Local().Format(time.DateTime), it.WatchDuration.Round(time.Second))
	}
	return w.Flush()
}
