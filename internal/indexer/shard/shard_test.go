package shard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/segment"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
}

func TestScanListsTokenShards(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "tokens-7.idx", "tokens-3.idx", "postings-3.idx", "postings-9.idx", segment.EntitiesFile, "tokens-x.idx")

	lengths, err := NewDirectory(dir, 0).Lengths(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, lengths)
}

func TestProbeRestrictsToFilter(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "tokens-3.idx", "tokens-5.idx", "tokens-8.idx")

	lengths, err := NewDirectory(dir, 0).Lengths([]int{8, 4, 3, 8})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 8}, lengths)

	lengths, err = NewDirectory(dir, 0).Lengths([]int{})
	require.NoError(t, err)
	assert.Empty(t, lengths)
}

func TestMissingDirectoryIsEmpty(t *testing.T) {
	lengths, err := NewDirectory(filepath.Join(t.TempDir(), "nope"), 0).Lengths(nil)
	require.NoError(t, err)
	assert.Empty(t, lengths)
}

func TestDisabledCacheAlwaysRescans(t *testing.T) {
	dir := t.TempDir()
	d := NewDirectory(dir, 0)
	touch(t, dir, "tokens-3.idx")
	lengths, err := d.Lengths(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, lengths)

	touch(t, dir, "tokens-4.idx")
	lengths, err = d.Lengths(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, lengths)

	_, err = os.Stat(filepath.Join(dir, segment.LengthCacheFile))
	assert.True(t, os.IsNotExist(err))
}

func TestCachedScanExpiresByAge(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDirectory(dir, time.Minute)
	d.cache.now = func() time.Time { return now }

	touch(t, dir, "tokens-3.idx")
	lengths, err := d.Lengths(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, lengths)

	touch(t, dir, "tokens-6.idx")
	now = now.Add(30 * time.Second)
	lengths, err = d.Lengths(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, lengths, "within the window the cached scan is served")

	now = now.Add(31 * time.Second)
	lengths, err = d.Lengths(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6}, lengths)
}

func TestInvalidateForcesRescan(t *testing.T) {
	dir := t.TempDir()
	d := NewDirectory(dir, time.Hour)
	touch(t, dir, "tokens-3.idx")
	_, err := d.Lengths(nil)
	require.NoError(t, err)

	touch(t, dir, "tokens-5.idx")
	require.NoError(t, d.Invalidate())
	require.NoError(t, d.Invalidate())

	lengths, err := d.Lengths(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, lengths)
}

func TestLengthCacheIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), segment.LengthCacheFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	c := NewLengthCache(path, time.Hour)
	_, ok := c.Get()
	assert.False(t, ok)

	require.NoError(t, c.Put([]int{2, 4}))
	lengths, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, []int{2, 4}, lengths)
}
