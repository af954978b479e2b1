package shard

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dchest/safefile"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/segment"
)

// LengthCache persists the last directory scan with its refresh time. It is
// invalidated only by age; a TTL of zero or less disables it.
type LengthCache struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

type cacheRecord struct {
	Refreshed time.Time `json:"refreshed"`
	Lengths   []int     `json:"lengths"`
}

// NewLengthCache creates a cache stored at path.
func NewLengthCache(path string, ttl time.Duration) *LengthCache {
	return &LengthCache{path: path, ttl: ttl, now: time.Now}
}

// Enabled reports whether the cache is consulted at all.
func (c *LengthCache) Enabled() bool {
	return c.ttl > 0
}

// Get returns the cached lengths when the record is younger than the TTL.
func (c *LengthCache) Get() ([]int, bool) {
	if !c.Enabled() {
		return nil, false
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}
	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	if c.now().Sub(rec.Refreshed) >= c.ttl {
		return nil, false
	}
	return rec.Lengths, true
}

// Put records a fresh scan.
func (c *LengthCache) Put(lengths []int) error {
	if !c.Enabled() {
		return nil
	}
	if lengths == nil {
		lengths = []int{}
	}
	data, err := json.Marshal(cacheRecord{Refreshed: c.now(), Lengths: lengths})
	if err != nil {
		return fmt.Errorf("encoding length cache: %w", err)
	}
	if err := safefile.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing length cache: %w", err)
	}
	return nil
}

// Clear removes the cache file.
func (c *LengthCache) Clear() error {
	return segment.Remove(c.path)
}
