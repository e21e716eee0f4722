package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/loader"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/postgres"
)

func newImportCommand(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import segment files into the PostgreSQL catalog",
		Long: `Import reads every segment file in a directory, validates it, and stores
it in the PostgreSQL catalog. When Kafka is enabled each stored episode is
announced so running navigators rebuild their index.

Examples:
  navctl import ./segmented_outputs
  navctl import ./segmented_outputs --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd.Context(), args[0], refresh)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "request a full rebuild after importing")
	return cmd
}

func (a *app) runImport(ctx context.Context, dir string, refresh bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	episodes, failed, err := readDirectory(dir, a.cfg.Catalog.FilePattern)
	if err != nil {
		return err
	}

	db, err := postgres.New(a.cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to catalog: %w", err)
	}
	defer db.Close()
	store := loader.NewPostgres(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	var pub *publisher.Publisher
	if a.cfg.Kafka.Enabled {
		producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.Topics.CatalogRefresh)
		defer producer.Close()
		pub = publisher.New(store, producer)
	} else {
		pub = publisher.New(store, nil)
	}

	report := pub.ImportAll(ctx, episodes)
	for origin, reason := range failed {
		report.Failed[origin] = reason
	}
	fmt.Fprintf(a.out, "Imported %d episodes", len(report.Imported))
	if len(report.Failed) > 0 {
		fmt.Fprintf(a.out, ", %d failed:\n", len(report.Failed))
		origins := make([]string, 0, len(report.Failed))
		for origin := range report.Failed {
			origins = append(origins, origin)
		}
		sort.Strings(origins)
		for _, origin := range origins {
			fmt.Fprintf(a.out, "  %s: %s\n", origin, report.Failed[origin])
		}
	} else {
		fmt.Fprintln(a.out)
	}

	if refresh {
		if err := pub.RequestRefresh(ctx); err != nil {
			return fmt.Errorf("request refresh: %w", err)
		}
		fmt.Fprintln(a.out, "Refresh requested.")
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d files were not imported", len(report.Failed))
	}
	return nil
}

// readDirectory decodes every segment file, collecting undecodable files
// instead of stopping at the first.
func readDirectory(dir, pattern string) ([]index.RawEpisode, map[string]string, error) {
	files, err := loader.NewDirectory(dir, pattern).Files()
	if err != nil {
		return nil, nil, err
	}
	episodes := make([]index.RawEpisode, 0, len(files))
	failed := make(map[string]string)
	for _, path := range files {
		ep, err := loader.ReadEpisodeFile(path)
		if err != nil {
			failed[path] = err.Error()
			continue
		}
		episodes = append(episodes, ep)
	}
	return episodes, failed, nil
}
