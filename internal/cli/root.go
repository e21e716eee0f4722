// Package cli provides the navctl command-line interface: search, browse
// and maintain the podcast segment catalog from a terminal.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/loader"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/logger"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	segmentDir string
	source     string
	plain      bool
	verbose    bool

	cfg *config.Config
	out io.Writer
}

// NewRootCommand builds the navctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:   "navctl",
		Short: "Search and browse podcast episode segments",
		Long: `navctl searches the segment catalog the navigator serves.

It reads the same configuration as the navigator service and builds the
segment index locally, so it works without a running server.

Examples:
  navctl search kubernetes
  navctl episodes
  navctl browse ep12 --segment 3
  navctl validate --dir ./segmented_outputs`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to config file")
	flags.StringVarP(&a.segmentDir, "dir", "d", "", "segment directory (implies --source directory)")
	flags.StringVar(&a.source, "source", "", "catalog source: directory, postgres or mongo")
	flags.BoolVar(&a.plain, "plain", false, "mark keywords with ** instead of terminal styling")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newSearchCommand(a),
		newEpisodesCommand(a),
		newBrowseCommand(a),
		newValidateCommand(a),
		newImportCommand(a),
	)
	return root
}

// Execute runs navctl against os.Args.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.source != "" {
		cfg.Catalog.Source = a.source
	}
	if a.segmentDir != "" {
		cfg.Catalog.Source = config.SourceDirectory
		cfg.Catalog.SegmentDir = a.segmentDir
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	slog.SetDefault(logger.New(os.Stderr, nil, level, "text"))
	return nil
}

// buildIndex loads the configured catalog and builds an index from it.
func (a *app) buildIndex(ctx context.Context) (*index.Index, error) {
	backend, err := loader.Open(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	raw, err := backend.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", backend.Source.Name(), err)
	}
	return index.Build(raw)
}
