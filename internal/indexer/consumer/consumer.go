// Package consumer applies content-change events from Kafka to the fulltext
// index and announces every applied change on the index-updates topic.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/resilience"
)

// Index is the write side of the fulltext engine.
type Index interface {
	AddEntity(ctx context.Context, name string, tokens []string) error
	DeleteEntity(ctx context.Context, name string) error
}

// ContentFetcher returns the text of one entity revision.
type ContentFetcher interface {
	FetchContent(ctx context.Context, entity string, revision int64) (string, error)
}

// Tokenizer splits content into index tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// EventPublisher sends events to Kafka; *kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Applier turns one ChangeEvent into an index update.
type Applier struct {
	index     Index
	content   ContentFetcher
	tokenizer Tokenizer
	updates   EventPublisher
	retry     config.RetryConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewApplier creates an Applier. updates and m may be nil.
func NewApplier(index Index, content ContentFetcher, tok Tokenizer, updates EventPublisher, retry config.RetryConfig, m *metrics.Metrics) *Applier {
	return &Applier{
		index:     index,
		content:   content,
		tokenizer: tok,
		updates:   updates,
		retry:     retry,
		metrics:   m,
		logger:    slog.Default().With("component", "index-consumer"),
	}
}

// HandleMessage returns a Kafka MessageHandler that applies every change
// event. Undecodable messages are logged and skipped.
func (a *Applier) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.ChangeEvent](value)
		if err != nil {
			a.logger.Error("failed to decode change event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		return a.Apply(ctx, event)
	}
}

// Apply brings the index in line with one change. Lock failures are retried
// with backoff; a revision that no longer exists removes the entity.
func (a *Applier) Apply(ctx context.Context, event ingestion.ChangeEvent) error {
	start := time.Now()
	if event.Entity == "" {
		a.logger.Warn("change event without entity skipped", "revision", event.Revision)
		return nil
	}

	deleted := event.Deleted
	var tokens []string
	if !deleted {
		text, err := a.content.FetchContent(ctx, event.Entity, event.Revision)
		switch {
		case errors.Is(err, apperrors.ErrEntityNotFound):
			a.logger.Info("revision gone, removing entity from index",
				"entity", event.Entity,
				"revision", event.Revision,
			)
			deleted = true
		case err != nil:
			a.countError("content")
			return fmt.Errorf("fetching %q revision %d: %w", event.Entity, event.Revision, err)
		default:
			tokens = a.tokenizer.Tokenize(text)
		}
	}

	retry := resilience.RetryConfig{
		MaxAttempts:  a.retry.MaxAttempts,
		InitialDelay: a.retry.InitialDelay,
		MaxDelay:     a.retry.MaxDelay,
		Retryable: func(err error) bool {
			return errors.Is(err, apperrors.ErrLockFailure)
		},
		OnRetry: func(int, error) {
			if a.metrics != nil {
				a.metrics.LockRetriesTotal.Inc()
			}
		},
	}
	operation := "add"
	if deleted {
		operation = "delete"
	}
	err := resilience.Retry(ctx, "index "+operation, retry, func() error {
		if deleted {
			return a.index.DeleteEntity(ctx, event.Entity)
		}
		return a.index.AddEntity(ctx, event.Entity, tokens)
	})
	if err != nil {
		a.countError(errorClass(err))
		return fmt.Errorf("indexing %q revision %d: %w", event.Entity, event.Revision, err)
	}
	if a.metrics != nil {
		a.metrics.EntitiesIndexedTotal.WithLabelValues(operation).Inc()
		a.metrics.IndexLatency.Observe(time.Since(start).Seconds())
	}

	a.logger.Info("entity indexed",
		"entity", event.Entity,
		"revision", event.Revision,
		"operation", operation,
		"tokens", len(tokens),
		"took", time.Since(start),
	)
	a.announce(ctx, ingestion.IndexedEvent{
		Entity:    event.Entity,
		Revision:  event.Revision,
		Deleted:   deleted,
		Tokens:    len(tokens),
		IndexedAt: time.Now().UTC(),
	})
	return nil
}

func (a *Applier) announce(ctx context.Context, event ingestion.IndexedEvent) {
	if a.updates == nil {
		return
	}
	if err := a.updates.Publish(ctx, kafka.Event{Key: event.Entity, Value: event}); err != nil {
		a.logger.Warn("index update not announced, search cache may be stale",
			"entity", event.Entity,
			"error", err,
		)
	}
}

func (a *Applier) countError(class string) {
	if a.metrics != nil {
		a.metrics.IndexErrorsTotal.WithLabelValues(class).Inc()
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrLockFailure):
		return "lock"
	case errors.Is(err, apperrors.ErrAccessFailure):
		return "access"
	case errors.Is(err, apperrors.ErrWriteFailure):
		return "write"
	default:
		return "other"
	}
}
