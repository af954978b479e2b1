package index

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key addresses one token inside one length shard.
type Key struct {
	Length  int
	TokenID int
}

// Freqs maps shard keys to an entity's frequency for that token.
type Freqs map[Key]int

// CountTokens counts occurrences of each token and groups them by the shard
// length reported by lengthOf. Empty tokens are ignored.
func CountTokens(tokens []string, lengthOf func(string) int) map[int]map[string]int {
	out := make(map[int]map[string]int)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		l := lengthOf(tok)
		bucket, ok := out[l]
		if !ok {
			bucket = make(map[string]int)
			out[l] = bucket
		}
		bucket[tok]++
	}
	return out
}

// Zeroed builds a table holding every key at frequency zero.
func Zeroed(keys []Key) Freqs {
	out := make(Freqs, len(keys))
	for _, k := range keys {
		out[k] = 0
	}
	return out
}

// Merge overlays next on prev. Keys only in prev keep their prev value, keys
// in next take next's value. Callers pass a Zeroed prev so that keys missing
// from next come out as deletions.
func Merge(prev, next Freqs) Freqs {
	out := make(Freqs, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

// ByLength splits the table into per-shard maps of tokenID to frequency.
func (f Freqs) ByLength() map[int]map[int]int {
	out := make(map[int]map[int]int)
	for k, v := range f {
		shard, ok := out[k.Length]
		if !ok {
			shard = make(map[int]int)
			out[k.Length] = shard
		}
		shard[k.TokenID] = v
	}
	return out
}

// NonZero returns the keys with a positive frequency, sorted by length then
// token ID.
func (f Freqs) NonZero() []Key {
	keys := make([]Key, 0, len(f))
	for k, v := range f {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	SortKeys(keys)
	return keys
}

// SortKeys orders keys by length, then token ID.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Length != keys[j].Length {
			return keys[i].Length < keys[j].Length
		}
		return keys[i].TokenID < keys[j].TokenID
	})
}

// FormatAssignment encodes an entity's reverse assignment as "L*tid:L*tid".
func FormatAssignment(keys []Key) string {
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(pairSep)
		}
		sb.WriteString(strconv.Itoa(k.Length))
		sb.WriteString(valueSep)
		sb.WriteString(strconv.Itoa(k.TokenID))
	}
	return sb.String()
}

// ParseAssignment decodes a reverse-index record.
func ParseAssignment(line string) ([]Key, error) {
	if line == "" {
		return nil, nil
	}
	parts := strings.Split(line, pairSep)
	keys := make([]Key, 0, len(parts))
	for _, part := range parts {
		l, tid, err := splitPair(part)
		if err != nil {
			return nil, fmt.Errorf("parsing assignment %q: %w", part, err)
		}
		keys = append(keys, Key{Length: l, TokenID: tid})
	}
	return keys, nil
}
