// Command ingestion starts the content HTTP service.
//
// The service accepts entity content via PUT /api/v1/entities/{name} and
// deletions via DELETE /api/v1/entities/{name}. Every change is stored as a
// new revision in PostgreSQL and published to the content-changes topic for
// the indexer.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/middleware"
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
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

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
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ContentChanges)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.ContentChanges)

	h := handler.New(publisher.New(store, producer))
	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(store.Ping))

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/entities/{name}", h.Put)
	mux.HandleFunc("DELETE /api/v1/entities/{name}", h.Delete)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	middlewares := []func(http.Handler) http.Handler{middleware.RequestID}
	if cfg.Metrics.Enabled {
		middlewares = append(middlewares, middleware.Metrics(metrics.New(nil)))
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
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
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
