package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/executor"
)

func newEpisodesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes",
		Short: "List episodes by episode number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEpisodes(cmd.Context())
		},
	}
}

func (a *app) runEpisodes(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	idx, err := a.buildIndex(ctx)
	if err != nil {
		return err
	}
	episodes := idx.Episodes()
	if len(episodes) == 0 {
		fmt.Fprintln(a.out, "No episodes.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EPISODE\tNUMBER\tSEGMENTS")
	for _, ep := range episodes {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", ep.EpisodeID, ep.EpisodeNumber, ep.SegmentCount)
	}
	return tw.Flush()
}

func newBrowseCommand(a *app) *cobra.Command {
	var segment int
	cmd := &cobra.Command{
		Use:   "browse <episode-id>",
		Short: "Show an episode's segments in order",
		Long: `Browse prints every segment of an episode with its position in the
episode. With --segment only that segment is shown.

Examples:
  navctl browse ep12
  navctl browse ep12 --segment 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBrowse(cmd.Context(), args[0], segment)
		},
	}
	cmd.Flags().IntVarP(&segment, "segment", "s", 0, "only show this segment number")
	return cmd
}

func (a *app) runBrowse(ctx context.Context, episodeID string, segment int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	idx, err := a.buildIndex(ctx)
	if err != nil {
		return err
	}
	view, err := executor.New(executor.Fixed(idx)).Browse(ctx, episodeID)
	if err != nil {
		return err
	}

	p := printer{out: a.out, plain: a.plain, theme: defaultTheme}
	fmt.Fprintln(a.out, p.style(p.theme.titleStyle(),
		fmt.Sprintf("Episode %s (#%d), %d segments", view.EpisodeID, view.EpisodeNumber, len(view.Segments))))
	fmt.Fprintln(a.out)

	shown := 0
	for i, hit := range view.Segments {
		if segment != 0 && hit.SegmentNumber != segment {
			continue
		}
		p.hit(i+1, hit)
		shown++
	}
	if shown == 0 {
		return fmt.Errorf("episode %s has no segment %d", episodeID, segment)
	}
	return nil
}
