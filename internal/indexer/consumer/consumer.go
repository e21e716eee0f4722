// Package consumer rebuilds the segment index when catalog change events
// arrive on Kafka.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/metrics"
)

// Rebuilder is the part of the indexer engine the consumer drives.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*index.Index, error)
}

// RefreshConsumer wraps a Kafka consumer subscribed to catalog events.
type RefreshConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *RefreshConsumer {
	return &RefreshConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "refresh-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (rc *RefreshConsumer) Start(ctx context.Context) error {
	rc.logger.Info("refresh consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleRefresh returns a MessageHandler that rebuilds the index for every
// catalog event. Undecodable events and catalog data errors are logged and
// committed: replaying them would fail the same way. Source outages are
// returned so the event stays uncommitted. m may be nil.
func HandleRefresh(rebuilder Rebuilder, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "refresh-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.CatalogEvent](value)
		if err != nil {
			logger.Error("failed to decode catalog event", "error", err, "key", string(key))
			return nil
		}
		if m != nil {
			m.RefreshEventsTotal.WithLabelValues(event.Action).Inc()
		}
		logger.Debug("catalog event received",
			"episode_id", event.EpisodeID,
			"action", event.Action,
		)

		idx, err := rebuilder.Rebuild(ctx)
		if err != nil {
			if errors.Is(err, apperrors.ErrLoad) {
				logger.Error("catalog contains invalid records, index unchanged",
					"episode_id", event.EpisodeID,
					"error", err,
				)
				return nil
			}
			return err
		}
		logger.Info("index refreshed from catalog event",
			"episode_id", event.EpisodeID,
			"action", event.Action,
			"epoch", idx.Epoch(),
		)
		return nil
	}
}
