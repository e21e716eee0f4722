package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/kafka"
)

const (
	latencyWindow = 10000
	topLimit      = 10
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	TotalBrowses      int64        `json:"total_browses"`
	IndexBuilds       int64        `json:"index_builds"`
	LastEpoch         uint64       `json:"last_epoch"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	TopEpisodes       []QueryCount `json:"top_episodes"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	totalBrowses      atomic.Int64
	indexBuilds       atomic.Int64
	lastEpoch         atomic.Uint64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	latencies         []int64
	latencyNext       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	episodeCounts     map[string]int64
	startTime         time.Time
	now               func() time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator returns an empty aggregator. consumer may be nil when
// events are recorded in-process only.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, latencyWindow),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		episodeCounts:     make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		consumer:          consumer,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// NewKafkaAggregator returns an aggregator fed by the events on topic.
// Call Start to begin consuming.
func NewKafkaAggregator(cfg config.KafkaConfig, topic, groupID string) *Aggregator {
	agg := NewAggregator(nil)
	agg.consumer = kafka.NewConsumer(cfg, topic, groupID, HandleEvent(agg))
	return agg
}

func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return errors.New("analytics aggregator has no consumer")
	}
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes analytics events by their type field. Unknown or
// malformed events are logged and committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventSearch:
			ev, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.RecordSearch(ev)
		case EventBrowse:
			ev, err := kafka.DecodeJSON[BrowseEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode browse event", "error", err)
				return nil
			}
			agg.RecordBrowse(ev)
		case EventIndex:
			ev, err := kafka.DecodeJSON[IndexEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode index event", "error", err)
				return nil
			}
			agg.RecordIndex(ev)
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type)
		}
		return nil
	}
}

// RecordSearch counts queries case-insensitively, matching how they are
// searched.
func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.totalSearches.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}
	query := strings.ToLower(event.Query)

	a.mu.Lock()
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % latencyWindow
	}
	a.queryCounts[query]++
	if event.TotalHits == 0 {
		a.zeroResultQueries[query]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) RecordBrowse(event BrowseEvent) {
	a.totalBrowses.Add(1)
	a.mu.Lock()
	a.episodeCounts[event.EpisodeID]++
	a.mu.Unlock()
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.indexBuilds.Add(1)
	for {
		last := a.lastEpoch.Load()
		if event.Epoch <= last || a.lastEpoch.CompareAndSwap(last, event.Epoch) {
			return
		}
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		TotalBrowses:    a.totalBrowses.Load(),
		IndexBuilds:     a.indexBuilds.Load(),
		LastEpoch:       a.lastEpoch.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topLimit)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topLimit)
	stats.TopEpisodes = topN(a.episodeCounts, topLimit)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then by key so ties are deterministic.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
