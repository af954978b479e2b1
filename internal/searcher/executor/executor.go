package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/searcher/ranker"
)

type SearchResult struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TermStats map[string]int     `json:"term_stats"`
}

// WordLookup resolves query terms to per-entity hit counts.
type WordLookup interface {
	LookupWords(ctx context.Context, terms []string) (indexer.Hits, error)
}

type Executor struct {
	lookup WordLookup
	logger *slog.Logger
}

func New(lookup WordLookup) *Executor {
	return &Executor{
		lookup: lookup,
		logger: slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if len(plan.Terms) == 0 {
		return &SearchResult{
			Query:     plan.RawQuery,
			Results:   []ranker.ScoredDoc{},
			TermStats: map[string]int{},
		}, nil
	}

	words := make([]string, 0, len(plan.Terms)+len(plan.ExcludeTerms))
	words = append(words, plan.Terms...)
	words = append(words, plan.ExcludeTerms...)
	hits, err := e.lookup.LookupWords(ctx, words)
	if err != nil {
		return nil, fmt.Errorf("looking up %d terms: %w", len(words), err)
	}

	hitsPerTerm := make(map[string]map[string]int, len(plan.Terms))
	termStats := make(map[string]int, len(plan.Terms))
	for _, term := range plan.Terms {
		termStats[term] = len(hits[term])
		if len(hits[term]) > 0 {
			hitsPerTerm[term] = hits[term]
		}
	}

	var candidates map[string]struct{}
	switch plan.Type {
	case parser.QueryAND:
		candidates = intersect(hitsPerTerm)
	case parser.QueryOR:
		candidates = union(hitsPerTerm)
	}
	for _, term := range plan.ExcludeTerms {
		for entity := range hits[term] {
			delete(candidates, entity)
		}
	}

	ranked := ranker.Rank(hitsPerTerm, candidates, limit)
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"candidates", len(candidates),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		TotalHits: len(candidates),
		Results:   ranked,
		TermStats: termStats,
	}, nil
}

// intersect keeps the entities matched by every term that matched anything.
func intersect(hitsPerTerm map[string]map[string]int) map[string]struct{} {
	if len(hitsPerTerm) == 0 {
		return make(map[string]struct{})
	}
	var shortest string
	shortestLen := int(^uint(0) >> 1)
	for term, entities := range hitsPerTerm {
		if len(entities) < shortestLen {
			shortest, shortestLen = term, len(entities)
		}
	}
	candidates := make(map[string]struct{}, shortestLen)
	for entity := range hitsPerTerm[shortest] {
		candidates[entity] = struct{}{}
	}
	for term, entities := range hitsPerTerm {
		if term == shortest {
			continue
		}
		for entity := range candidates {
			if _, ok := entities[entity]; !ok {
				delete(candidates, entity)
			}
		}
	}
	return candidates
}

func union(hitsPerTerm map[string]map[string]int) map[string]struct{} {
	result := make(map[string]struct{})
	for _, entities := range hitsPerTerm {
		for entity := range entities {
			result[entity] = struct{}{}
		}
	}
	return result
}
