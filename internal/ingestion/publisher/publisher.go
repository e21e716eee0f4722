// Package publisher imports validated episode records into the catalog
// store and announces each change on Kafka so index owners rebuild.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/kafka"
)

// Store persists raw episode records.
type Store interface {
	Save(ctx context.Context, ep index.RawEpisode) error
	Delete(ctx context.Context, episodeID string) error
}

// EventPublisher sends catalog events; *kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	store    Store
	producer EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a Publisher. producer may be nil, in which case changes are
// stored but not announced.
func New(store Store, producer EventPublisher) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
		now:      time.Now,
	}
}

// Import validates ep with the builder's rules, stores it, and publishes
// an upsert event. Invalid records are rejected before they reach the
// store, so one bad file cannot break the next index build.
func (p *Publisher) Import(ctx context.Context, ep index.RawEpisode) error {
	if err := index.ValidateEpisode(ep); err != nil {
		return err
	}
	if err := p.store.Save(ctx, ep); err != nil {
		return fmt.Errorf("storing episode %q: %w", ep.EpisodeID, err)
	}
	p.announce(ctx, ingestion.CatalogEvent{
		EpisodeID: ep.EpisodeID,
		Action:    ingestion.ActionUpsert,
		Segments:  len(ep.Segments),
	})
	return nil
}

// ImportAll imports every episode, continuing past failures.
func (p *Publisher) ImportAll(ctx context.Context, episodes []index.RawEpisode) *ingestion.ImportReport {
	report := &ingestion.ImportReport{
		Imported: make([]string, 0, len(episodes)),
		Failed:   make(map[string]string),
	}
	for _, ep := range episodes {
		if err := p.Import(ctx, ep); err != nil {
			key := ep.Origin
			if key == "" {
				key = ep.EpisodeID
			}
			report.Failed[key] = err.Error()
			p.logger.Warn("episode import failed", "origin", key, "error", err)
			continue
		}
		report.Imported = append(report.Imported, ep.EpisodeID)
	}
	p.logger.Info("import finished",
		"imported", len(report.Imported),
		"failed", len(report.Failed),
	)
	return report
}

// Remove deletes an episode from the store and publishes a delete event.
func (p *Publisher) Remove(ctx context.Context, episodeID string) error {
	if err := p.store.Delete(ctx, episodeID); err != nil {
		return err
	}
	p.announce(ctx, ingestion.CatalogEvent{EpisodeID: episodeID, Action: ingestion.ActionDelete})
	return nil
}

// RequestRefresh asks every index owner to rebuild without a catalog
// change, e.g. after editing rows by hand.
func (p *Publisher) RequestRefresh(ctx context.Context) error {
	if p.producer == nil {
		return fmt.Errorf("no event producer configured")
	}
	return p.producer.Publish(ctx, kafka.Event{
		Key:   ingestion.ActionRefresh,
		Value: ingestion.CatalogEvent{Action: ingestion.ActionRefresh, PublishedAt: p.now().UTC()},
	})
}

// announce publishes ev. The store is the source of truth, so a failed
// publish is logged and the next periodic rebuild picks the change up.
func (p *Publisher) announce(ctx context.Context, ev ingestion.CatalogEvent) {
	if p.producer == nil {
		return
	}
	ev.PublishedAt = p.now().UTC()
	if err := p.producer.Publish(ctx, kafka.Event{Key: ev.EpisodeID, Value: ev}); err != nil {
		p.logger.Error("failed to publish catalog event, index refresh delayed",
			"episode_id", ev.EpisodeID,
			"action", ev.Action,
			"error", err,
		)
	}
}
