package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the catalog builds into an index",
		Long: `Validate loads the configured catalog and runs the index build without
serving it. It exits non-zero with the offending file, episode and field
when a record is rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd.Context())
		},
	}
}

func (a *app) runValidate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	idx, err := a.buildIndex(ctx)
	if err != nil {
		var loadErr *index.LoadError
		if errors.As(err, &loadErr) {
			fmt.Fprintln(a.out, "Catalog is invalid:")
			if loadErr.Origin != "" {
				fmt.Fprintf(a.out, "  file:    %s\n", loadErr.Origin)
			}
			if loadErr.EpisodeID != "" {
				fmt.Fprintf(a.out, "  episode: %s\n", loadErr.EpisodeID)
			}
			if loadErr.SegmentID != "" {
				fmt.Fprintf(a.out, "  segment: %s\n", loadErr.SegmentID)
			}
			if loadErr.Field != "" {
				fmt.Fprintf(a.out, "  field:   %s\n", loadErr.Field)
			}
			fmt.Fprintf(a.out, "  reason:  %s\n", loadErr.Reason)
		}
		return err
	}
	stats := idx.Stats()
	fmt.Fprintf(a.out, "Catalog OK: %d episodes, %d segments\n", stats.Episodes, stats.Segments)
	return nil
}
