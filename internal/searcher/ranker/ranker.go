package ranker

import (
	"sort"
)

type ScoredDoc struct {
	Entity string         `json:"entity"`
	Hits   int            `json:"hits"`
	Terms  map[string]int `json:"terms,omitempty"`
}

// Rank orders candidate entities by the summed hit count of every term they
// matched, breaking ties by name. A non-positive limit keeps every result.
func Rank(hitsPerTerm map[string]map[string]int, candidates map[string]struct{}, limit int) []ScoredDoc {
	docs := make(map[string]*ScoredDoc, len(candidates))
	for term, entities := range hitsPerTerm {
		for entity, hits := range entities {
			if _, ok := candidates[entity]; !ok {
				continue
			}
			doc, ok := docs[entity]
			if !ok {
				doc = &ScoredDoc{Entity: entity, Terms: make(map[string]int)}
				docs[entity] = doc
			}
			doc.Hits += hits
			doc.Terms[term] += hits
		}
	}
	result := make([]ScoredDoc, 0, len(docs))
	for _, doc := range docs {
		result = append(result, *doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Hits != result[j].Hits {
			return result[i].Hits > result[j].Hits
		}
		return result[i].Entity < result[j].Entity
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
