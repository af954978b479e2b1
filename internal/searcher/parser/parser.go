package parser

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/tokenizer"
)

type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

func (t QueryType) String() string {
	if t == QueryOR {
		return "OR"
	}
	return "AND"
}

type QueryPlan struct {
	Terms        []string
	Type         QueryType
	ExcludeTerms []string
	RawQuery     string
}

// Parse turns a free-text query into lookup terms. Terms keep a single
// leading or trailing "*". "NOT x" and "-x" exclude x from the results.
// Repeated terms are kept once.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Type:         QueryAND,
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	words := strings.Fields(query)
	seen := make(map[string]struct{})
	excludeNext := false
	for i := 0; i < len(words); i++ {
		word := words[i]
		switch strings.ToUpper(word) {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		exclude := excludeNext
		excludeNext = false
		if strings.HasPrefix(word, "-") && len(word) > 1 {
			exclude = true
			word = word[1:]
		}
		for _, term := range terms(word) {
			key := term
			if exclude {
				key = "-" + term
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if exclude {
				plan.ExcludeTerms = append(plan.ExcludeTerms, term)
			} else {
				plan.Terms = append(plan.Terms, term)
			}
		}
	}
	return plan
}

// terms splits one query word into index terms, carrying its wildcard ends
// over to the first and last piece.
func terms(word string) []string {
	leading := strings.HasPrefix(word, index.Wildcard)
	trailing := len(word) > 1 && strings.HasSuffix(word, index.Wildcard)
	parts := tokenizer.Split(word)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		open := (i == 0 && leading) || (i == len(parts)-1 && trailing)
		if !open && tokenizer.IsStopWord(part) {
			continue
		}
		if i == 0 && leading {
			part = index.Wildcard + part
		}
		if i == len(parts)-1 && trailing {
			part += index.Wildcard
		}
		out = append(out, part)
	}
	return out
}

// Key is a canonical form of the plan: equal keys produce equal results.
func (p *QueryPlan) Key() string {
	terms := append([]string(nil), p.Terms...)
	excludes := append([]string(nil), p.ExcludeTerms...)
	sort.Strings(terms)
	sort.Strings(excludes)
	parts := []string{p.Type.String(), strings.Join(terms, ",")}
	if len(excludes) > 0 {
		parts = append(parts, "NOT:"+strings.Join(excludes, ","))
	}
	return strings.Join(parts, "|")
}
