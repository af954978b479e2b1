package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateRow(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		entityID int
		freq     int
		want     string
	}{
		{"insert into empty", "", 4, 2, "4*2"},
		{"insert keeps order", "1*1:9*3", 5, 2, "1*1:5*2:9*3"},
		{"insert at front", "3*1", 0, 7, "0*7:3*1"},
		{"replace", "1*1:5*2", 5, 6, "1*1:5*6"},
		{"delete", "1*1:5*2:9*3", 5, 0, "1*1:9*3"},
		{"delete last", "5*2", 5, 0, ""},
		{"delete absent is no-op", "1*1:9*3", 5, 0, "1*1:9*3"},
		{"unsorted input comes out sorted", "9*3:1*1", 4, 1, "1*1:4*1:9*3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UpdateRow(tt.line, tt.entityID, tt.freq)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRowDropsZeroAndRejectsGarbage(t *testing.T) {
	row, err := ParseRow("2*0:3*4")
	require.NoError(t, err)
	assert.Equal(t, Row{{EntityID: 3, Freq: 4}}, row)
	assert.Equal(t, 4, row.Total())

	_, err = ParseRow("3-4")
	assert.Error(t, err)
	_, err = ParseRow("x*1")
	assert.Error(t, err)
}

func TestRowSetDoesNotAliasInput(t *testing.T) {
	row := Row{{EntityID: 1, Freq: 1}, {EntityID: 2, Freq: 2}}
	_ = row.Set(1, 9)
	assert.Equal(t, 1, row[0].Freq)
}

func TestMergeDiffsOldAgainstNew(t *testing.T) {
	old := Zeroed([]Key{{3, 0}, {3, 1}, {5, 2}})
	next := Freqs{{3, 1}: 2, {4, 0}: 1}

	merged := Merge(old, next)

	assert.Equal(t, Freqs{
		{3, 0}: 0,
		{3, 1}: 2,
		{5, 2}: 0,
		{4, 0}: 1,
	}, merged)
	assert.Equal(t, []Key{{3, 1}, {4, 0}}, merged.NonZero())
	assert.Equal(t, map[int]map[int]int{
		3: {0: 0, 1: 2},
		4: {0: 1},
		5: {2: 0},
	}, merged.ByLength())
}

func TestCountTokens(t *testing.T) {
	counts := CountTokens([]string{"cat", "cat", "dog", "", "horse"}, func(s string) int { return len(s) })
	assert.Equal(t, map[int]map[string]int{
		3: {"cat": 2, "dog": 1},
		5: {"horse": 1},
	}, counts)
}

func TestAssignmentRoundTrip(t *testing.T) {
	keys := []Key{{3, 0}, {3, 7}, {12, 1}}
	line := FormatAssignment(keys)
	assert.Equal(t, "3*0:3*7:12*1", line)

	parsed, err := ParseAssignment(line)
	require.NoError(t, err)
	assert.Equal(t, keys, parsed)

	empty, err := ParseAssignment("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPattern(t *testing.T) {
	tests := []struct {
		term    string
		base    string
		wild    bool
		matches []string
		misses  []string
	}{
		{"test*", "test", true, []string{"test", "tester", "testing"}, []string{"attest", "tes"}},
		{"*ing", "ing", true, []string{"testing", "ing"}, []string{"tester", "ingot"}},
		{"*es*", "es", true, []string{"tester", "es", "best"}, []string{"sea"}},
		{"test", "test", false, []string{"test"}, []string{"tester"}},
		{"a.c*", "a.c", true, []string{"a.cd"}, []string{"abcd"}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			p := ParsePattern(tt.term)
			assert.Equal(t, tt.base, p.Base)
			assert.Equal(t, tt.wild, p.IsWildcard())
			for _, m := range tt.matches {
				assert.True(t, p.Match(m), m)
			}
			for _, m := range tt.misses {
				assert.False(t, p.Match(m), m)
			}
		})
	}
}
