// Package publisher stores content revisions and announces them on Kafka so
// the indexer can bring the fulltext index up to date.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/kafka"
)

// RevisionWriter persists entity revisions; *content.Store satisfies it.
type RevisionWriter interface {
	SaveRevision(ctx context.Context, entity, text string) (int64, error)
	MarkDeleted(ctx context.Context, entity string) (int64, error)
}

// EventPublisher sends events to Kafka; *kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates revision persistence and change-event production.
type Publisher struct {
	store    RevisionWriter
	producer EventPublisher
	logger   *slog.Logger
}

func New(store RevisionWriter, producer EventPublisher) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Put stores new content for entity and publishes a ChangeEvent. A failed
// publish is logged; the revision stays stored and is picked up by the next
// change or a reindex.
func (p *Publisher) Put(ctx context.Context, entity string, req *ingestion.ContentRequest) (*ingestion.ContentResponse, error) {
	revision, err := p.store.SaveRevision(ctx, entity, req.Content)
	if err != nil {
		return nil, fmt.Errorf("storing content: %w", err)
	}
	p.announce(ctx, entity, revision, false)
	return &ingestion.ContentResponse{
		Entity:   entity,
		Revision: revision,
		Status:   ingestion.StatusPending,
	}, nil
}

// Delete records a deletion revision and publishes a ChangeEvent for it.
func (p *Publisher) Delete(ctx context.Context, entity string) (*ingestion.ContentResponse, error) {
	revision, err := p.store.MarkDeleted(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("deleting content: %w", err)
	}
	p.announce(ctx, entity, revision, true)
	return &ingestion.ContentResponse{
		Entity:   entity,
		Revision: revision,
		Status:   ingestion.StatusDeleted,
	}, nil
}

func (p *Publisher) announce(ctx context.Context, entity string, revision int64, deleted bool) {
	event := kafka.Event{
		Key: entity,
		Value: ingestion.ChangeEvent{
			Entity:    entity,
			Revision:  revision,
			Deleted:   deleted,
			ChangedAt: time.Now().UTC(),
		},
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish change, index is behind",
			"entity", entity,
			"revision", revision,
			"error", err,
		)
	}
}
