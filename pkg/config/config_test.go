package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Indexer.MinWordLength)
	assert.Equal(t, 10*time.Second, cfg.Indexer.LockTimeout)
	assert.Equal(t, "content-changes", cfg.Kafka.Topics.ContentChanges)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fulltext.yaml")
	yml := `
indexer:
  dataDir: /var/lib/fulltext
  minWordLength: 2
  lengthCacheTTL: 30s
search:
  defaultLimit: 25
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("SP_INDEXER_LOCK_TIMEOUT", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/fulltext", cfg.Indexer.DataDir)
	assert.Equal(t, 2, cfg.Indexer.MinWordLength)
	assert.Equal(t, 30*time.Second, cfg.Indexer.LengthCacheTTL)
	assert.Equal(t, 2*time.Second, cfg.Indexer.LockTimeout)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxResults)
}

func TestLoadRejectsBadIndexer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("indexer:\n  minWordLength: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
