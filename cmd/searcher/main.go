// Command searcher serves fulltext queries and token histograms over HTTP.
//
// Results are cached in Redis when it is reachable; the cache is dropped
// whenever the indexer announces an applied change. When PostgreSQL is
// reachable, postings of entities deleted from the content store are
// filtered out of results.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/content"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Indexer.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()
	checker.Register("index_dir", health.DirCheck(cfg.Indexer.DataDir))

	var entityChecker indexer.EntityChecker
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, stale entity filtering disabled", "error", err)
	} else {
		defer db.Close()
		store := content.NewStore(db)
		entityChecker = store
		checker.Register("postgres", health.PingCheck(store.Ping))
	}

	engine, err := indexer.NewEngine(cfg.Indexer, entityChecker)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)

		hostname, _ := os.Hostname()
		updates := kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.IndexUpdates,
			kafka.ConsumerOptions{GroupID: cfg.Kafka.ConsumerGroup + "-search-" + hostname},
			queryCache.HandleIndexUpdate(),
		)
		go func() {
			if err := updates.Start(ctx); err != nil {
				slog.Error("index update consumer error", "error", err)
			}
		}()
	}

	h := handler.New(executor.New(engine), engine, queryCache, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/histogram", h.Histogram)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	middlewares := []func(http.Handler) http.Handler{middleware.RequestID}
	if m != nil {
		middlewares = append(middlewares, middleware.Metrics(m))
	}
	middlewares = append(middlewares, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middlewares...),
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
