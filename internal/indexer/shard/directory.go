// Package shard discovers which token-length shards exist in an index
// directory. Full scans are cached in a side file for a configurable window.
package shard

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/segment"
)

// Directory lists the shard lengths of one index directory.
type Directory struct {
	dir    string
	cache  *LengthCache
	logger *slog.Logger
}

// NewDirectory creates a Directory over dir whose scans stay valid for ttl.
func NewDirectory(dir string, ttl time.Duration) *Directory {
	return &Directory{
		dir:    dir,
		cache:  NewLengthCache(filepath.Join(dir, segment.LengthCacheFile), ttl),
		logger: slog.Default().With("component", "shard-directory"),
	}
}

// Lengths returns the existing shard lengths in ascending order. A non-nil
// filter restricts the answer to those lengths and probes each file directly
// instead of scanning the directory.
func (d *Directory) Lengths(filter []int) ([]int, error) {
	if filter != nil {
		return d.probe(filter)
	}
	if lengths, ok := d.cache.Get(); ok {
		return lengths, nil
	}
	lengths, err := d.scan()
	if err != nil {
		return nil, err
	}
	if err := d.cache.Put(lengths); err != nil {
		d.logger.Warn("length cache not updated", "error", err)
	}
	return lengths, nil
}

// Invalidate drops the cached scan.
func (d *Directory) Invalidate() error {
	return d.cache.Clear()
}

func (d *Directory) probe(filter []int) ([]int, error) {
	seen := make(map[int]struct{}, len(filter))
	out := make([]int, 0, len(filter))
	for _, l := range filter {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		_, err := os.Stat(segment.TokensPath(d.dir, l))
		if err == nil {
			out = append(out, l)
			continue
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("probing shard %d: %w", l, err)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (d *Directory) scan() ([]int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index directory: %w", err)
	}
	lengths := make([]int, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if l, ok := segment.ParseTokensName(entry.Name()); ok {
			lengths = append(lengths, l)
		}
	}
	sort.Ints(lengths)
	d.logger.Debug("index directory scanned", "shards", len(lengths))
	return lengths, nil
}
