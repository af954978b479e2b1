// Package content is the PostgreSQL-backed document store. Every change to
// an entity is kept as a numbered revision; the indexer fetches revision
// text from here and the search side asks it whether an entity still exists.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS entity_revisions (
	entity     TEXT        NOT NULL,
	revision   BIGINT      NOT NULL,
	content    TEXT        NOT NULL DEFAULT '',
	deleted    BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (entity, revision)
)`

// Revision is one stored version of an entity.
type Revision struct {
	Entity    string
	Revision  int64
	Content   string
	Deleted   bool
	CreatedAt time.Time
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "content-store"),
	}
}

// EnsureSchema creates the revisions table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating content schema: %w", err)
	}
	return nil
}

// SaveRevision stores content as the entity's next revision.
func (s *Store) SaveRevision(ctx context.Context, entity, text string) (int64, error) {
	return s.append(ctx, entity, text, false)
}

// MarkDeleted records a deletion revision. Entities without a live revision
// yield ErrEntityNotFound.
func (s *Store) MarkDeleted(ctx context.Context, entity string) (int64, error) {
	return s.append(ctx, entity, "", true)
}

func (s *Store) append(ctx context.Context, entity, text string, deleted bool) (int64, error) {
	var revision int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		// serializes revision numbering per entity
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, entity); err != nil {
			return fmt.Errorf("locking entity: %w", err)
		}
		if deleted {
			live, err := latestLive(ctx, tx, entity)
			if err != nil {
				return err
			}
			if !live {
				return fmt.Errorf("deleting %q: %w", entity, apperrors.ErrEntityNotFound)
			}
		}
		return tx.QueryRowContext(ctx,
			`INSERT INTO entity_revisions (entity, revision, content, deleted)
			SELECT $1, COALESCE(MAX(revision), 0) + 1, $2, $3 FROM entity_revisions WHERE entity = $1
			RETURNING revision`, entity, text, deleted).Scan(&revision)
	})
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return 0, fmt.Errorf("saving %q: %w", entity, apperrors.ErrEntityExists)
		}
		return 0, fmt.Errorf("saving revision of %q: %w", entity, err)
	}
	s.logger.Debug("revision saved", "entity", entity, "revision", revision, "deleted", deleted)
	return revision, nil
}

func latestLive(ctx context.Context, tx *sql.Tx, entity string) (bool, error) {
	var deleted bool
	err := tx.QueryRowContext(ctx,
		`SELECT deleted FROM entity_revisions WHERE entity = $1 ORDER BY revision DESC LIMIT 1`,
		entity).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading latest revision: %w", err)
	}
	return !deleted, nil
}

// FetchRevision returns the given revision, or the latest one when revision
// is zero or negative.
func (s *Store) FetchRevision(ctx context.Context, entity string, revision int64) (*Revision, error) {
	query := `SELECT entity, revision, content, deleted, created_at FROM entity_revisions
		WHERE entity = $1 AND revision = $2`
	args := []any{entity, revision}
	if revision <= 0 {
		query = `SELECT entity, revision, content, deleted, created_at FROM entity_revisions
		WHERE entity = $1 ORDER BY revision DESC LIMIT 1`
		args = args[:1]
	}
	var r Revision
	err := s.db.DB.QueryRowContext(ctx, query, args...).
		Scan(&r.Entity, &r.Revision, &r.Content, &r.Deleted, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %q revision %d: %w", entity, revision, apperrors.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %q revision %d: %w", entity, revision, err)
	}
	return &r, nil
}

// FetchContent returns the text of a revision. Deleted revisions are
// reported as not found.
func (s *Store) FetchContent(ctx context.Context, entity string, revision int64) (string, error) {
	r, err := s.FetchRevision(ctx, entity, revision)
	if err != nil {
		return "", err
	}
	if r.Deleted {
		return "", fmt.Errorf("entity %q revision %d is deleted: %w", entity, r.Revision, apperrors.ErrEntityNotFound)
	}
	return r.Content, nil
}

// EntityExists reports whether the latest revision of name is live. Store
// errors count as existing so that an outage never hides search results.
func (s *Store) EntityExists(ctx context.Context, name string) bool {
	r, err := s.FetchRevision(ctx, name, 0)
	if err != nil {
		if !errors.Is(err, apperrors.ErrEntityNotFound) {
			s.logger.Warn("existence check failed", "entity", name, "error", err)
			return true
		}
		return false
	}
	return !r.Deleted
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
