// Package handler serves the navigator's read API: search, episode browse,
// audio lookup and index/cache operations.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/audio"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/middleware"
)

// Rebuilder is the part of the indexer engine the admin routes drive.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*index.Index, error)
	Status() indexer.Status
}

type Options struct {
	DefaultLimit int
	MaxResults   int
	Audio        audio.Resolver
	Rebuilder    Rebuilder
	Metrics      *metrics.Metrics
}

type Handler struct {
	executor     *executor.Executor
	cache        *cache.QueryCache
	recorder     *analytics.Recorder
	rebuilder    Rebuilder
	audio        audio.Resolver
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New wires a handler. queryCache, recorder and opts.Rebuilder may be nil.
func New(exec *executor.Executor, queryCache *cache.QueryCache, recorder *analytics.Recorder, opts Options) *Handler {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxResults {
		opts.DefaultLimit = opts.MaxResults
	}
	return &Handler{
		executor:     exec,
		cache:        queryCache,
		recorder:     recorder,
		rebuilder:    opts.Rebuilder,
		audio:        opts.Audio,
		metrics:      opts.Metrics,
		defaultLimit: opts.DefaultLimit,
		maxResults:   opts.MaxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/episodes", h.Episodes)
	mux.HandleFunc("GET /api/v1/episodes/{id}/segments", h.Segments)
	mux.HandleFunc("GET /api/v1/audio/{number}", h.Audio)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.IndexRebuild)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// SearchResponse is one page of a search. TotalHits counts every match,
// not just the page.
type SearchResponse struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Offset    int            `json:"offset"`
	Limit     int            `json:"limit"`
	Results   []executor.Hit `json:"results"`
	Epoch     uint64         `json:"epoch"`
	CacheHit  bool           `json:"cache_hit"`
	TookMs    int64          `json:"took_ms"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	limit, offset, err := h.paging(r)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	plan := parser.Parse(query)
	if plan.Empty {
		h.observeSearch("empty_query", "none", 0, start)
		h.writeJSON(w, http.StatusOK, &SearchResponse{
			Query:   query,
			Limit:   limit,
			Offset:  offset,
			Results: []executor.Hit{},
		})
		return
	}

	idx, err := h.executor.Snapshot()
	if err != nil {
		h.observeSearch("error", "none", 0, start)
		h.writeAppError(w, err)
		return
	}
	compute := func() (*executor.SearchResult, error) {
		return h.executor.Search(ctx, idx, plan)
	}

	var result *executor.SearchResult
	cacheHit := false
	cacheStatus := "none"
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, idx.Fingerprint(), compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.observeSearch("error", cacheStatus, 0, start)
		h.writeAppError(w, err)
		return
	}

	resp := &SearchResponse{
		Query:     query,
		TotalHits: result.TotalHits,
		Offset:    offset,
		Limit:     limit,
		Results:   page(result.Results, offset, limit),
		Epoch:     result.Epoch,
		CacheHit:  cacheHit,
		TookMs:    time.Since(start).Milliseconds(),
	}
	resultType := "match"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	h.observeSearch(resultType, cacheStatus, result.TotalHits, start)

	log.Info("search completed",
		"query", query,
		"total_hits", resp.TotalHits,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", resp.TookMs,
	)
	h.recorder.Search(analytics.SearchEvent{
		Query:     query,
		TotalHits: resp.TotalHits,
		Returned:  len(resp.Results),
		LatencyMs: resp.TookMs,
		CacheHit:  cacheHit,
		Epoch:     resp.Epoch,
		RequestID: middleware.GetRequestID(ctx),
	})

	h.writeJSON(w, http.StatusOK, resp)
}

// paging reads limit and offset. limit is capped at maxResults.
func (h *Handler) paging(r *http.Request) (limit, offset int, err error) {
	limit = h.defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n < 1 {
			return 0, 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"limit must be a positive integer")
		}
		limit = min(n, h.maxResults)
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n < 0 {
			return 0, 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}

func page(hits []executor.Hit, offset, limit int) []executor.Hit {
	if offset >= len(hits) {
		return []executor.Hit{}
	}
	end := min(offset+limit, len(hits))
	return hits[offset:end]
}

func (h *Handler) observeSearch(resultType, cacheStatus string, total int, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	if resultType == "match" || resultType == "zero_result" {
		h.metrics.SearchResultsCount.Observe(float64(total))
	}
}

type episodesResponse struct {
	Total    int                 `json:"total"`
	Episodes []index.EpisodeInfo `json:"episodes"`
}

func (h *Handler) Episodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.executor.Episodes(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, episodesResponse{Total: len(episodes), Episodes: episodes})
}

// Segments lists an episode's segments in order. With ?segment=N only that
// segment is returned.
func (h *Handler) Segments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	episodeID := r.PathValue("id")
	view, err := h.executor.Browse(ctx, episodeID)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	if s := r.URL.Query().Get("segment"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"segment must be an integer"))
			return
		}
		view.Segments = selectSegment(view.Segments, n)
		if len(view.Segments) == 0 {
			h.writeAppError(w, apperrors.Newf(apperrors.ErrEpisodeNotFound, http.StatusNotFound,
				"episode %q has no segment %d", episodeID, n))
			return
		}
	}
	h.recorder.Browse(analytics.BrowseEvent{
		EpisodeID: view.EpisodeID,
		Segments:  len(view.Segments),
		RequestID: middleware.GetRequestID(ctx),
	})
	h.writeJSON(w, http.StatusOK, view)
}

func selectSegment(hits []executor.Hit, number int) []executor.Hit {
	for _, hit := range hits {
		if hit.SegmentNumber == number {
			return []executor.Hit{hit}
		}
	}
	return nil
}

func (h *Handler) Audio(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"episode number must be an integer"))
		return
	}
	path, err := h.audio.Resolve(n)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	http.ServeFile(w, r, path)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	if h.rebuilder != nil {
		status := h.rebuilder.Status()
		code := http.StatusOK
		if !status.Ready {
			code = http.StatusServiceUnavailable
		}
		h.writeJSON(w, code, status)
		return
	}
	stats, err := h.executor.Stats(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) IndexRebuild(w http.ResponseWriter, r *http.Request) {
	if h.rebuilder == nil {
		h.writeError(w, http.StatusServiceUnavailable, "rebuild is not available")
		return
	}
	idx, err := h.rebuilder.Rebuild(r.Context())
	if err != nil {
		h.logger.Warn("requested rebuild failed", "error", err)
		var loadErr *index.LoadError
		if errors.As(err, &loadErr) {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   err.Error(),
				"details": loadErr,
			})
			return
		}
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, idx.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  stats.Breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to its HTTP status. Internal errors are not
// echoed to the client.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError && !errors.Is(err, apperrors.ErrDivision) {
		message = "internal error"
	}
	h.writeError(w, status, message)
}
