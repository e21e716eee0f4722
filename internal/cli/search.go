package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/parser"
)

func newSearchCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find segments whose summary or keywords mention the query",
		Long: `Search matches the query as a literal, case-insensitive substring of each
segment's summary and keyword list. Results are ordered by episode number,
then segment number.

Examples:
  navctl search "large language models"
  navctl search intro --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd.Context(), args[0], limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "max results to print (0 prints all)")
	return cmd
}

func (a *app) runSearch(ctx context.Context, query string, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	idx, err := a.buildIndex(ctx)
	if err != nil {
		return err
	}
	hits, err := executor.SearchAll(idx, parser.Parse(query))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		fmt.Fprintln(a.out, "No matching segments.")
		return nil
	}

	fmt.Fprintf(a.out, "Found %d matching segments:\n\n", len(hits))
	shown := hits
	if limit > 0 && limit < len(hits) {
		shown = hits[:limit]
	}
	p := printer{out: a.out, plain: a.plain, theme: defaultTheme}
	for i, hit := range shown {
		p.hit(i+1, hit)
	}
	if len(shown) < len(hits) {
		fmt.Fprintf(a.out, "... %d more\n", len(hits)-len(shown))
	}
	return nil
}
