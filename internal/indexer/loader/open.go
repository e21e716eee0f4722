package loader

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/mongo"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/postgres"
)

// Backend is an opened catalog source. Ping is nil for sources without a
// connection; Close is always safe to call.
type Backend struct {
	Source indexer.Source
	Ping   func(ctx context.Context) error
	Close  func() error
}

// Open connects the source named by cfg.Catalog.Source.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Catalog.Source {
	case config.SourceDirectory:
		return &Backend{
			Source: NewDirectory(cfg.Catalog.SegmentDir, cfg.Catalog.FilePattern),
			Close:  func() error { return nil },
		}, nil

	case config.SourcePostgres:
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		store := NewPostgres(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &Backend{Source: store, Ping: db.Ping, Close: db.Close}, nil

	case config.SourceMongo:
		client, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Source: NewMongo(client.Collection(), client.Namespace()),
			Ping:   client.Ping,
			Close:  func() error { return client.Close(context.Background()) },
		}, nil

	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}
