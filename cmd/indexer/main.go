// Command indexer keeps the fulltext index in line with the content store.
//
// It consumes content-change events from Kafka, tokenizes the referenced
// revision and applies it to the flat-file index, then announces every
// applied change on the index-updates topic so search caches can drop stale
// results.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/postgres"
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
	slog.Info("starting indexer service", "data_dir", cfg.Indexer.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := content.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare content schema", "error", err)
		os.Exit(1)
	}

	engine, err := indexer.NewEngine(cfg.Indexer, store)
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

	updates := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdates)
	defer updates.Close()

	applier := consumer.NewApplier(engine, store, engine.Tokenizer(), updates, cfg.Indexer.Retry, m)
	changes := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.ContentChanges,
		kafka.ConsumerOptions{FromStart: true},
		applier.HandleMessage(),
	)

	checker := health.NewChecker()
	checker.Register("index_dir", health.DirCheck(cfg.Indexer.DataDir))
	checker.Register("postgres", health.PingCheck(store.Ping))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("indexer health endpoint listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.ContentChanges,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := changes.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}
	slog.Info("indexer service stopped")
}
