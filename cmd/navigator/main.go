// Command navigator serves search and browse over podcast episode segments.
//
// It builds the segment index from the configured catalog source, keeps it
// fresh on a timer and on catalog events from Kafka, and exposes the HTTP API
// under /api/v1 with Prometheus metrics on a separate port.
//
// Usage:
//
//	go run ./cmd/navigator [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/audio"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/loader"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := logger.Setup(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg)
	if err != nil {
		slog.Error("navigator stopped with error", "error", err)
	} else {
		slog.Info("navigator stopped")
	}
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Info("starting navigator",
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	backend, err := loader.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer backend.Close()

	engine := indexer.NewEngine(cfg.Catalog, backend.Source, m)

	var redisClient *pkgredis.Client
	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			engine.OnRebuild(func(idx *index.Index) {
				invalidateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if _, err := queryCache.Retarget(invalidateCtx, idx.Fingerprint()); err != nil {
					slog.Warn("cache invalidation after rebuild failed",
						"epoch", idx.Epoch(),
						"fingerprint", idx.Fingerprint(),
						"error", err,
					)
				}
			})
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	recorder, closeRecorder := newRecorder(ctx, cfg)
	defer func() {
		stop()
		closeRecorder()
	}()
	engine.OnRebuild(func(idx *index.Index) {
		recorder.Index(analytics.IndexEvent{
			Epoch:    idx.Epoch(),
			Episodes: len(idx.Episodes()),
			Segments: idx.Len(),
		})
	})

	if err := engine.LoadInitial(ctx); err != nil {
		return fmt.Errorf("initial index build: %w", err)
	}
	engine.StartRefreshLoop(ctx)

	if cfg.Kafka.Enabled {
		groupID := fmt.Sprintf("%s-%s", cfg.Kafka.ConsumerGroup, instanceID())
		refresh := consumer.New(kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.CatalogRefresh,
			groupID,
			consumer.HandleRefresh(engine, m),
		))
		go func() {
			if err := refresh.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("refresh consumer stopped", "error", err)
			}
		}()
		slog.Info("catalog refresh consumer started",
			"topic", cfg.Kafka.Topics.CatalogRefresh,
			"group", groupID,
		)
	}

	checker := health.NewChecker()
	checker.Register("segment_index", func(ctx context.Context) health.ComponentHealth {
		status := engine.Status()
		if !status.Ready {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index not built"}
		}
		msg := fmt.Sprintf("epoch %d, %d segments", status.Index.Epoch, status.Index.Segments)
		if status.LastError != "" {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: msg + "; last rebuild failed: " + status.LastError}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: msg}
	})
	if backend.Ping != nil {
		checker.Register("catalog", health.PingCheck(pingFunc(backend.Ping), true))
	}
	if cfg.Redis.Enabled {
		var pinger health.Pinger
		if redisClient != nil {
			pinger = redisClient
		}
		checker.Register("redis", health.PingCheck(pinger, true))
	}

	exec := executor.New(engine)
	h := handler.New(exec, queryCache, recorder, handler.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		Audio:        audio.Resolver{Dir: cfg.Catalog.AudioDir, Ext: cfg.Catalog.AudioExt},
		Rebuilder:    engine,
		Metrics:      m,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(recorder.Local()).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout, "/api/v1/audio/")(chain)
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(time.Minute)
		limiter.StartCleanup(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter, cfg.RateLimit.RequestsPerMinute)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins))(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("navigator listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newRecorder counts analytics in-process and, with Kafka enabled, ships
// them to the analytics service. The recorder is nil when analytics is off.
// The returned func blocks until buffered events are flushed, so call it
// after ctx is cancelled.
func newRecorder(ctx context.Context, cfg *config.Config) (*analytics.Recorder, func()) {
	if !cfg.Analytics.Enabled {
		return nil, func() {}
	}
	local := analytics.NewAggregator(nil)
	if !cfg.Kafka.Enabled {
		return analytics.NewRecorder(local, nil), func() {}
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	batches := collector.NewBatchCollector(producer, 100, cfg.Analytics.BufferSize, 5*time.Second)
	batches.Start(ctx)
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	return analytics.NewRecorder(local, batches), func() {
		batches.Close()
		if err := producer.Close(); err != nil {
			slog.Warn("closing analytics producer", "error", err)
		}
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// instanceID names this process's refresh consumer group. Every instance
// needs every catalog event, so groups must not be shared.
func instanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}
