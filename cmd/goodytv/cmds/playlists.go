package cmds

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/voyagen/goodytv/internal/models"
)

func NewPlaylistsCLI() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlists",
		Short: "Manage saved playlists",
	}
	cmd.AddCommand(newPlaylistsListCLI(), newPlaylistsAddCLI(), newPlaylistsRemoveCLI(),
		newPlaylistsUseCLI(), newPlaylistsStatsCLI())
	return cmd
}

func newPlaylistsListCLI() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in and saved playlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			var all []models.SavedPlaylist
			if query != "" {
				all, err = c.playlists.Search(ctx, query)
			} else {
				all, err = c.playlists.List(ctx)
			}
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tNAME\tCHANNELS\tURL")
			for _, p := range all {
				mark := ""
				if p.IsActive {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", mark, p.ID, p.Name, p.ChannelCount, p.SourceURL)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "filter by name or URL")
	return cmd
}

func newPlaylistsAddCLI() *cobra.Command {
	var guide string
	cmd := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Save a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			p, err := c.playlists.Add(cmd.Context(), args[0], args[1], guide)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&guide, "guide", "", "XMLTV guide URL")
	return cmd
}

func newPlaylistsRemoveCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Delete a saved playlist (built-ins cannot be removed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			return c.playlists.Remove(cmd.Context(), args[0])
		},
	}
}

func newPlaylistsUseCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "use ID",
		Short: "Load a playlist and make it the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			res, err := c.refresher.Switch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d channels, guide for %d\n", len(res.Channels), len(res.Schedule))
			return nil
		},
	}
}

func newPlaylistsStatsCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise saved playlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			st, err := c.playlists.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "playlists: %d (%d saved)\n", st.TotalPlaylists, st.UserPlaylistCount)
			fmt.Fprintf(out, "channels:  %d\n", st.TotalChannels)
			if !st.MostRecentUpdate.IsZero() {
				fmt.Fprintf(out, "updated:   %s\n", st.MostRecentUpdate.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}
