package indexer

import (
	"context"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
)

// Hits maps a query term to the entities it matched and the summed
// frequency of every matching token.
type Hits map[string]map[string]int

// match is one token of one shard that satisfied a query term.
type match struct {
	term string
	key  index.Key
}

// LookupWords resolves query terms against every relevant shard. Terms may
// carry a single leading and/or trailing wildcard. Repeated terms are looked
// up once. Entities that no longer exist are left out of the result.
func (e *Engine) LookupWords(ctx context.Context, terms []string) (Hits, error) {
	start := time.Now()
	exact := make(map[int][]index.Pattern)
	var wild []index.Pattern
	minWild := 0
	seen := make(map[string]struct{}, len(terms))

	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		p := index.ParsePattern(term)
		if p.Base == "" {
			continue
		}
		length := tokenizer.Length(p.Base)
		if !p.IsWildcard() {
			if !e.tokens.Eligible(p.Base) {
				continue
			}
			exact[length] = append(exact[length], p)
			continue
		}
		wild = append(wild, p)
		if minWild == 0 || length < minWild {
			minWild = length
		}
	}
	if len(exact) == 0 && len(wild) == 0 {
		return Hits{}, nil
	}

	lengths, err := e.candidateShards(exact, minWild, len(wild) > 0)
	if err != nil {
		return nil, err
	}

	var matches []match
	for _, length := range lengths {
		found, err := e.matchShard(length, exact[length], wild)
		if err != nil {
			return nil, err
		}
		matches = append(matches, found...)
	}
	if len(matches) == 0 {
		return Hits{}, nil
	}

	hits, err := e.collect(ctx, matches)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("words looked up",
		"terms", len(terms),
		"shards", len(lengths),
		"tokens_matched", len(matches),
		"took", time.Since(start),
	)
	return hits, nil
}

// candidateShards returns the ascending shard lengths a lookup must visit.
func (e *Engine) candidateShards(exact map[int][]index.Pattern, minWild int, hasWild bool) ([]int, error) {
	filter := make([]int, 0, len(exact))
	for l := range exact {
		filter = append(filter, l)
	}
	if !hasWild {
		lengths, err := e.shards.Lengths(filter)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrAccessFailure, err, "listing shards")
		}
		return lengths, nil
	}

	all, err := e.shards.Lengths(nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAccessFailure, err, "listing shards")
	}
	exactSet := make(map[int]struct{}, len(filter))
	for _, l := range filter {
		exactSet[l] = struct{}{}
	}
	out := make([]int, 0, len(all))
	for _, l := range all {
		if _, ok := exactSet[l]; ok || l >= minWild {
			out = append(out, l)
		}
	}
	// exact lengths created after the cached scan
	if len(filter) > 0 {
		probed, err := e.shards.Lengths(filter)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrAccessFailure, err, "listing shards")
		}
		out = unionSorted(out, probed)
	}
	return out, nil
}

// matchShard finds the token IDs of one shard matched by the exact terms of
// that length and by the wildcard terms.
func (e *Engine) matchShard(length int, exact, wild []index.Pattern) ([]match, error) {
	table := e.ids.Tokens(length)
	var out []match
	for _, p := range exact {
		id, ok, err := table.Lookup(p.Base)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, match{term: p.Raw, key: index.Key{Length: length, TokenID: id}})
		}
	}

	var scan []index.Pattern
	for _, p := range wild {
		if tokenizer.Length(p.Base) <= length {
			scan = append(scan, p)
		}
	}
	if len(scan) == 0 {
		return out, nil
	}
	names, err := table.Names()
	if err != nil {
		return nil, err
	}
	for id, token := range names {
		if token == "" {
			continue
		}
		for _, p := range scan {
			if p.Match(token) {
				out = append(out, match{term: p.Raw, key: index.Key{Length: length, TokenID: id}})
			}
		}
	}
	return out, nil
}

// collect reads the posting rows of every match and sums frequencies per
// term and live entity.
func (e *Engine) collect(ctx context.Context, matches []match) (Hits, error) {
	shards := make(map[int]*segment.Postings)
	alive := make(map[int]string)
	dead := make(map[int]struct{})
	entities := e.ids.Entities()
	hits := make(Hits)
	stale := 0

	for _, m := range matches {
		postings, ok := shards[m.key.Length]
		if !ok {
			var err error
			postings, err = segment.LoadPostings(e.cfg.DataDir, m.key.Length)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrAccessFailure, err, "shard %d", m.key.Length)
			}
			shards[m.key.Length] = postings
		}
		row, err := postings.Row(m.key.TokenID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrAccessFailure, err, "shard %d", m.key.Length)
		}
		for _, p := range row {
			if _, gone := dead[p.EntityID]; gone {
				continue
			}
			name, known := alive[p.EntityID]
			if !known {
				name, known, err = entities.Name(p.EntityID)
				if err != nil {
					return nil, err
				}
				if !known || (e.checker != nil && !e.checker.EntityExists(ctx, name)) {
					dead[p.EntityID] = struct{}{}
					stale++
					continue
				}
				alive[p.EntityID] = name
			}
			perTerm, ok := hits[m.term]
			if !ok {
				perTerm = make(map[string]int)
				hits[m.term] = perTerm
			}
			perTerm[name] += p.Freq
		}
	}
	if stale > 0 {
		e.logger.Debug("stale postings skipped", "entities", stale)
	}
	return hits, nil
}

// Histogram totals each token's frequency over all entities, for shards of
// at least minLen. Totals outside [min, max] are dropped; a max not above min
// leaves the range open-ended.
func (e *Engine) Histogram(min, max, minLen int) (map[string]int, error) {
	lengths, err := e.shards.Lengths(nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAccessFailure, err, "listing shards")
	}
	out := make(map[string]int)
	for _, length := range lengths {
		if length < minLen {
			continue
		}
		names, err := e.ids.Tokens(length).Names()
		if err != nil {
			return nil, err
		}
		postings, err := segment.LoadPostings(e.cfg.DataDir, length)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrAccessFailure, err, "shard %d", length)
		}
		for id, token := range names {
			if token == "" {
				continue
			}
			row, err := postings.Row(id)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrAccessFailure, err, "shard %d", length)
			}
			total := row.Total()
			if total == 0 || total < min {
				continue
			}
			if max > min && total > max {
				continue
			}
			out[token] = total
		}
	}
	return out, nil
}

func unionSorted(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, s := range [][]int{a, b} {
		for _, v := range s {
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Ints(out)
	return out
}
