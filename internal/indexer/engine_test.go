package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
)

type fakeChecker struct {
	mu      sync.Mutex
	deleted map[string]bool
}

func (f *fakeChecker) EntityExists(_ context.Context, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.deleted[name]
}

func newEngine(t *testing.T, checker EntityChecker) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultIndexerConfig(dir)
	cfg.LockTimeout = 2 * time.Second
	cfg.LockRetryDelay = time.Millisecond
	e, err := NewEngine(cfg, checker)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, dir
}

func readFiles(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make(map[string]string)
	for _, entry := range entries {
		if !segment.IsShardFile(entry.Name()) && entry.Name() != segment.ReverseFile && entry.Name() != segment.EntitiesFile {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		out[entry.Name()] = string(data)
	}
	return out
}

func TestAddEntityIsIdempotent(t *testing.T) {
	e, dir := newEngine(t, nil)
	ctx := context.Background()
	tokens := []string{"cat", "cat", "dog", "elephant"}

	require.NoError(t, e.AddEntity(ctx, "doc1", tokens))
	first := readFiles(t, dir)
	require.NoError(t, e.AddEntity(ctx, "doc1", tokens))
	assert.Equal(t, first, readFiles(t, dir))
}

func TestLookupRoundTrip(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"cat", "cat", "dog", "elephant"}))
	require.NoError(t, e.AddEntity(ctx, "doc2", []string{"dog"}))

	hits, err := e.LookupWords(ctx, []string{"cat", "dog", "elephant", "go"})
	require.NoError(t, err)
	assert.Equal(t, Hits{
		"cat":      {"doc1": 2},
		"dog":      {"doc1": 1, "doc2": 1},
		"elephant": {"doc1": 1},
	}, hits)
}

func TestRepeatedTermsCountOnce(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc", []string{"cat", "cat", "tester"}))

	hits, err := e.LookupWords(ctx, []string{"cat", "cat", "test*", "test*"})
	require.NoError(t, err)
	assert.Equal(t, Hits{
		"cat":   {"doc": 2},
		"test*": {"doc": 1},
	}, hits)
}

func TestLookupUnknownTermsIsEmpty(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()

	hits, err := e.LookupWords(ctx, []string{"nothing"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"cat"}))
	hits, err = e.LookupWords(ctx, []string{"cow", "*zz*", "ab"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestNumericTermsIgnoreMinLength(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"7", "7"}))

	hits, err := e.LookupWords(ctx, []string{"7"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"7": {"doc1": 2}}, hits)
}

func TestEmptyTokensRemoveEntity(t *testing.T) {
	e, dir := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"cat", "horse"}))
	require.NoError(t, e.AddEntity(ctx, "doc1", nil))

	hits, err := e.LookupWords(ctx, []string{"cat", "horse"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	for _, length := range []int{3, 5} {
		data, err := os.ReadFile(segment.PostingsPath(dir, length))
		require.NoError(t, err)
		assert.Equal(t, "\n", string(data), "shard %d", length)
	}
	reverse, err := os.ReadFile(filepath.Join(dir, segment.ReverseFile))
	require.NoError(t, err)
	assert.Equal(t, "\n", string(reverse))
}

func TestUpdateRemovesDroppedTokens(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"cat", "cat", "dog"}))
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"dog", "owl", "owl", "owl"}))

	hits, err := e.LookupWords(ctx, []string{"cat", "dog", "owl"})
	require.NoError(t, err)
	assert.Equal(t, Hits{
		"dog": {"doc1": 1},
		"owl": {"doc1": 3},
	}, hits)
}

func TestWildcardLookup(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"testing", "testing", "tester"}))
	require.NoError(t, e.AddEntity(ctx, "doc2", []string{"singing"}))

	hits, err := e.LookupWords(ctx, []string{"test*"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"test*": {"doc1": 3}}, hits)

	hits, err = e.LookupWords(ctx, []string{"*ing"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"*ing": {"doc1": 2, "doc2": 1}}, hits)

	hits, err = e.LookupWords(ctx, []string{"*est*", "singing"})
	require.NoError(t, err)
	assert.Equal(t, Hits{
		"*est*":   {"doc1": 3},
		"singing": {"doc2": 1},
	}, hits)
}

func TestWideCharactersUseOwnShard(t *testing.T) {
	e, dir := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"中", "abc"}))

	_, err := os.Stat(segment.TokensPath(dir, 6))
	assert.NoError(t, err)
	assert.NotEqual(t, e.TokenLength("中"), e.TokenLength("abc"))

	hits, err := e.LookupWords(ctx, []string{"中"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"中": {"doc1": 1}}, hits)
}

func TestHistogram(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "a", []string{"cat", "cat", "dog"}))
	require.NoError(t, e.AddEntity(ctx, "b", []string{"dog", "horse"}))

	h, err := e.Histogram(1, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cat": 2, "dog": 2, "horse": 1}, h)

	h, err = e.Histogram(2, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cat": 2, "dog": 2}, h)

	h, err = e.Histogram(1, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"horse": 1}, h)

	h, err = e.Histogram(0, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"horse": 1}, h)
}

func TestStaleEntitiesAreFiltered(t *testing.T) {
	checker := &fakeChecker{deleted: map[string]bool{}}
	e, _ := newEngine(t, checker)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "kept", []string{"cat"}))
	require.NoError(t, e.AddEntity(ctx, "gone", []string{"cat"}))

	checker.mu.Lock()
	checker.deleted["gone"] = true
	checker.mu.Unlock()

	hits, err := e.LookupWords(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"cat": {"kept": 1}}, hits)
}

func TestDeleteEntity(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"cat"}))
	require.NoError(t, e.DeleteEntity(ctx, "doc1"))
	require.NoError(t, e.DeleteEntity(ctx, "never-indexed"))

	hits, err := e.LookupWords(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	names, err := e.Entities()
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, names)
}

func TestRenameEntityKeepsPostings(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "old", []string{"cat"}))
	require.NoError(t, e.AddEntity(ctx, "other", []string{"dog"}))

	require.NoError(t, e.RenameEntity(ctx, "old", "new"))
	hits, err := e.LookupWords(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"cat": {"new": 1}}, hits)

	err = e.RenameEntity(ctx, "new", "other")
	assert.True(t, errors.Is(err, apperrors.ErrEntityExists))
}

func TestNewEngineCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "index")
	e, err := NewEngine(config.DefaultIndexerConfig(dir), nil)
	require.NoError(t, err)
	defer e.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	require.NoError(t, e.AddEntity(context.Background(), "doc", []string{"cat"}))
}

func TestAddEntityRejectsEmptyName(t *testing.T) {
	e, _ := newEngine(t, nil)
	err := e.AddEntity(context.Background(), "", []string{"cat"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestLineBreaksRejected(t *testing.T) {
	e, dir := newEngine(t, nil)
	ctx := context.Background()

	err := e.AddEntity(ctx, "a\nb", []string{"cat"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	err = e.AddEntity(ctx, "doc", []string{"bad\rtoken"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	require.NoError(t, e.AddEntity(ctx, "dog", []string{"horse"}))
	err = e.RenameEntity(ctx, "dog", "x\ny")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	reopened, err := NewEngine(config.DefaultIndexerConfig(dir), nil)
	require.NoError(t, err)
	defer reopened.Close()
	names, err := reopened.Entities()
	require.NoError(t, err)
	assert.Equal(t, []string{"dog"}, names)
	hits, err := reopened.LookupWords(ctx, []string{"cat", "horse"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"horse": {"dog": 1}}, hits)
}

func TestFailedShardLeavesEntityRediffable(t *testing.T) {
	e, dir := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"cat"}))
	reverseBefore, err := os.ReadFile(filepath.Join(dir, segment.ReverseFile))
	require.NoError(t, err)

	blocker := segment.PostingsPath(dir, 4)
	require.NoError(t, os.Mkdir(blocker, 0o755))
	err = e.AddEntity(ctx, "doc1", []string{"dog", "fish"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAccessFailure) || errors.Is(err, apperrors.ErrWriteFailure))

	reverseAfter, err := os.ReadFile(filepath.Join(dir, segment.ReverseFile))
	require.NoError(t, err)
	assert.Equal(t, string(reverseBefore), string(reverseAfter))

	require.NoError(t, os.Remove(blocker))
	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"dog", "fish"}))
	hits, err := e.LookupWords(ctx, []string{"cat", "dog", "fish"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"dog": {"doc1": 1}, "fish": {"doc1": 1}}, hits)
}

func TestNewShardVisibleThroughLengthCache(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultIndexerConfig(dir)
	cfg.LengthCacheTTL = time.Hour
	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"cat"}))
	_, err = e.LookupWords(ctx, []string{"ca*"})
	require.NoError(t, err)

	require.NoError(t, e.AddEntity(ctx, "doc2", []string{"castle"}))
	hits, err := e.LookupWords(ctx, []string{"ca*"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"ca*": {"doc1": 1, "doc2": 1}}, hits)
}

func TestClear(t *testing.T) {
	e, dir := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.Clear(ctx))

	require.NoError(t, e.AddEntity(ctx, "doc1", []string{"cat", "horse"}))
	require.NoError(t, e.Clear(ctx))
	assert.Empty(t, readFiles(t, dir))

	hits, err := e.LookupWords(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, e.AddEntity(ctx, "doc2", []string{"cat"}))
	hits, err = e.LookupWords(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"cat": {"doc2": 1}}, hits)
}

func TestConcurrentWritersStayConsistent(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, e.AddEntity(ctx, name, []string{"shared", name + "xyz"}))
		}(name)
	}
	wg.Wait()

	hits, err := e.LookupWords(ctx, []string{"shared"})
	require.NoError(t, err)
	assert.Equal(t, Hits{"shared": {"a": 1, "b": 1, "c": 1, "d": 1}}, hits)
}
