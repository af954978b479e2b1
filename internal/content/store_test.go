package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping content store test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "fulltext_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "fulltext"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	db := skipIfNoPostgres(t)
	s := NewStore(db)
	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))
	entity := fmt.Sprintf("test:%s:%d", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() {
		db.DB.ExecContext(context.Background(), `DELETE FROM entity_revisions WHERE entity = $1`, entity)
	})
	return s, entity
}

func TestRevisionsAreNumbered(t *testing.T) {
	s, entity := newStore(t)
	ctx := context.Background()

	r1, err := s.SaveRevision(ctx, entity, "first text")
	require.NoError(t, err)
	r2, err := s.SaveRevision(ctx, entity, "second text")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r1)
	assert.Equal(t, int64(2), r2)

	text, err := s.FetchContent(ctx, entity, 1)
	require.NoError(t, err)
	assert.Equal(t, "first text", text)

	text, err = s.FetchContent(ctx, entity, 0)
	require.NoError(t, err)
	assert.Equal(t, "second text", text)
	assert.True(t, s.EntityExists(ctx, entity))
}

func TestDeletedEntityDoesNotExist(t *testing.T) {
	s, entity := newStore(t)
	ctx := context.Background()

	_, err := s.MarkDeleted(ctx, entity)
	assert.True(t, errors.Is(err, apperrors.ErrEntityNotFound))

	_, err = s.SaveRevision(ctx, entity, "text")
	require.NoError(t, err)
	rev, err := s.MarkDeleted(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	assert.False(t, s.EntityExists(ctx, entity))
	_, err = s.FetchContent(ctx, entity, rev)
	assert.True(t, errors.Is(err, apperrors.ErrEntityNotFound))

	text, err := s.FetchContent(ctx, entity, 1)
	require.NoError(t, err)
	assert.Equal(t, "text", text)
}

func TestUnknownEntity(t *testing.T) {
	s, entity := newStore(t)
	assert.False(t, s.EntityExists(context.Background(), entity))
	_, err := s.FetchContent(context.Background(), entity, 3)
	assert.True(t, errors.Is(err, apperrors.ErrEntityNotFound))
}
