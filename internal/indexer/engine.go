package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/resilience"
)

// Source supplies the full set of raw episode records for one build.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]index.RawEpisode, error)
}

// Status describes the engine for operators.
type Status struct {
	Ready       bool        `json:"ready"`
	Source      string      `json:"source"`
	Index       index.Stats `json:"index"`
	LastAttempt string      `json:"last_attempt,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
}

// Engine owns the current index. Readers call Current and never block;
// rebuilds are serialised and publish a fresh index with an atomic swap, so
// a failed rebuild leaves the previous index in service.
type Engine struct {
	source  Source
	cfg     config.CatalogConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	current atomic.Pointer[index.Index]

	buildMu sync.Mutex
	epoch   uint64

	// statusMu is never held across a load, so Status answers while a
	// rebuild is in flight.
	statusMu    sync.Mutex
	lastAttempt time.Time
	lastErr     error

	hooksMu sync.RWMutex
	hooks   []func(*index.Index)
}

// NewEngine returns an engine with no index. m may be nil.
func NewEngine(cfg config.CatalogConfig, source Source, m *metrics.Metrics) *Engine {
	return &Engine{
		source:  source,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "indexer", "source", source.Name()),
	}
}

// Current returns the index in service, or nil before the first
// successful build.
func (e *Engine) Current() *index.Index {
	return e.current.Load()
}

func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// OnRebuild registers fn to run after every successful swap.
func (e *Engine) OnRebuild(fn func(*index.Index)) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Rebuild loads every record from the source, builds a new index and puts
// it in service.
func (e *Engine) Rebuild(ctx context.Context) (*index.Index, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()
	e.markAttempt(start.UTC())

	var raw []index.RawEpisode
	err := resilience.WithTimeout(ctx, e.cfg.LoadTimeout, "catalog load", func(ctx context.Context) error {
		var loadErr error
		raw, loadErr = e.source.Load(ctx)
		return loadErr
	})
	if err != nil {
		return nil, e.fail(fmt.Errorf("loading from %s: %w", e.source.Name(), err))
	}

	idx, err := index.Build(raw, index.WithEpoch(e.epoch+1), index.WithBuiltAt(start.UTC()))
	if err != nil {
		return nil, e.fail(err)
	}
	e.epoch++
	e.current.Store(idx)
	e.setLastErr(nil)

	if e.metrics != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
		e.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
		e.metrics.IndexSegments.Set(float64(idx.Len()))
		e.metrics.IndexEpisodes.Set(float64(len(idx.Episodes())))
		e.metrics.IndexEpoch.Set(float64(idx.Epoch()))
	}
	e.logger.Info("index rebuilt",
		"epoch", idx.Epoch(),
		"episodes", len(idx.Episodes()),
		"segments", idx.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	e.hooksMu.RLock()
	hooks := make([]func(*index.Index), len(e.hooks))
	copy(hooks, e.hooks)
	e.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(idx)
	}
	return idx, nil
}

func (e *Engine) markAttempt(at time.Time) {
	e.statusMu.Lock()
	e.lastAttempt = at
	e.statusMu.Unlock()
}

func (e *Engine) setLastErr(err error) {
	e.statusMu.Lock()
	e.lastErr = err
	e.statusMu.Unlock()
}

func (e *Engine) fail(err error) error {
	e.setLastErr(err)
	status := "source_error"
	if errors.Is(err, apperrors.ErrLoad) {
		status = "load_error"
	}
	if e.metrics != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	}
	if prev := e.current.Load(); prev != nil {
		e.logger.Error("index rebuild failed, keeping previous index",
			"error", err,
			"epoch", prev.Epoch(),
		)
	} else {
		e.logger.Error("index build failed", "error", err)
	}
	return err
}

// LoadInitial performs the first build, retrying while the source itself
// is unavailable. Malformed records are not retried; they have to be fixed
// at the source.
func (e *Engine) LoadInitial(ctx context.Context) error {
	cfg := resilience.RetryConfig{
		MaxAttempts:  e.cfg.LoadRetries,
		InitialDelay: e.cfg.LoadRetryDelay,
		Retryable: func(err error) bool {
			return !errors.Is(err, apperrors.ErrLoad)
		},
	}
	return resilience.Retry(ctx, "initial index build", cfg, func(ctx context.Context) error {
		_, err := e.Rebuild(ctx)
		return err
	})
}

// StartRefreshLoop rebuilds every cfg.RefreshInterval until ctx ends. A
// non-positive interval disables the loop.
func (e *Engine) StartRefreshLoop(ctx context.Context) {
	if e.cfg.RefreshInterval <= 0 {
		return
	}
	ticker := time.NewTicker(e.cfg.RefreshInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("refresh loop stopping")
				return
			case <-ticker.C:
				if _, err := e.Rebuild(ctx); err != nil && ctx.Err() == nil {
					e.logger.Warn("periodic rebuild failed", "error", err)
				}
			}
		}
	}()
}

func (e *Engine) Status() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	s := Status{Source: e.source.Name()}
	if idx := e.current.Load(); idx != nil {
		s.Ready = true
		s.Index = idx.Stats()
	}
	if !e.lastAttempt.IsZero() {
		s.LastAttempt = e.lastAttempt.Format(time.RFC3339)
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}
