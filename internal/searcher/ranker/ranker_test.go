package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdersByHitsThenName(t *testing.T) {
	hits := map[string]map[string]int{
		"cat": {"a": 1, "b": 3, "c": 2},
		"dog": {"a": 2, "c": 1, "z": 9},
	}
	candidates := map[string]struct{}{"a": {}, "b": {}, "c": {}}

	got := Rank(hits, candidates, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Entity)
	assert.Equal(t, 3, got[0].Hits)
	assert.Equal(t, map[string]int{"cat": 1, "dog": 2}, got[0].Terms)
	assert.Equal(t, "b", got[1].Entity)
	assert.Equal(t, "c", got[2].Entity)
}

func TestRankLimit(t *testing.T) {
	hits := map[string]map[string]int{"cat": {"a": 1, "b": 2, "c": 3}}
	candidates := map[string]struct{}{"a": {}, "b": {}, "c": {}}

	got := Rank(hits, candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Entity)
	assert.Equal(t, "b", got[1].Entity)
}

func TestRankNoCandidates(t *testing.T) {
	got := Rank(map[string]map[string]int{"cat": {"a": 1}}, nil, 10)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}
