// Package cache keeps full search results in Redis, keyed by index content
// fingerprint and normalised query, so repeated queries against the same
// catalog skip the scan. Instances serving identical content share entries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/resilience"
)

const keyPrefix = "segsearch:"

// Store is the key/value backend; *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type Stats struct {
	Hits    int64                   `json:"hits"`
	Misses  int64                   `json:"misses"`
	Breaker resilience.BreakerStats `json:"breaker"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	mu      sync.Mutex
	current string
}

// New returns a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store: store,
		ttl:   ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     15 * time.Second,
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get looks up the result for plan against the index with the given content
// fingerprint. Backend failures count as misses.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, fingerprint string) (*executor.SearchResult, bool) {
	key := buildKey(plan, fingerprint)
	var (
		data  string
		found bool
	)
	err := c.breaker.Execute(func() error {
		var err error
		data, found, err = c.store.Get(ctx, key)
		return err
	})
	c.reportBreaker()
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	return &result, true
}

// Set stores result under the fingerprint of the index that produced it.
func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, result *executor.SearchResult) {
	key := buildKey(plan, result.Fingerprint)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	c.reportBreaker()
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for plan at fingerprint, or runs compute
// once per key across concurrent callers and caches its result. The returned
// result carries the caller's raw query; cached is true on a hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	fingerprint string,
	compute func() (*executor.SearchResult, error),
) (result *executor.SearchResult, cached bool, err error) {
	if result, ok := c.Get(ctx, plan, fingerprint); ok {
		return withQuery(result, plan.RawQuery), true, nil
	}
	key := buildKey(plan, fingerprint)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, plan, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return withQuery(val.(*executor.SearchResult), plan.RawQuery), false, nil
}

// Invalidate drops every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	c.reportBreaker()
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Retarget records fingerprint as the content now being served and flushes
// the cache only when it differs from the previously recorded one. The first
// call only records. Rebuilds that reproduce the same catalog keep the cache
// warm for every instance sharing it.
func (c *QueryCache) Retarget(ctx context.Context, fingerprint string) (flushed bool, err error) {
	c.mu.Lock()
	prev := c.current
	c.current = fingerprint
	c.mu.Unlock()
	if prev == "" || prev == fingerprint {
		return false, nil
	}
	if _, err := c.Invalidate(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Breaker: c.breaker.Stats(),
	}
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) reportBreaker() {
	if c.metrics != nil {
		c.metrics.CircuitBreakerState.WithLabelValues("redis-cache").Set(float64(c.breaker.State()))
	}
}

// withQuery returns a shallow copy of r labelled with query. Hits are shared
// between callers, so the original is never mutated.
func withQuery(r *executor.SearchResult, query string) *executor.SearchResult {
	out := *r
	out.Query = query
	return &out
}

// buildKey scopes entries to one catalog content, so a changed catalog never
// serves stale hits even before Invalidate runs, while independently built
// indexes over the same content share entries.
func buildKey(plan *parser.QueryPlan, fingerprint string) string {
	hash := sha256.Sum256([]byte(plan.Key()))
	return fmt.Sprintf("%s%s:%x", keyPrefix, fingerprint, hash[:16])
}
