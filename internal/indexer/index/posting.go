// Package index holds the pure record transforms of the flat-file index:
// posting rows, frequency tables and their merge, reverse assignments, and
// wildcard token patterns. Nothing in this package touches the filesystem.
package index

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	pairSep  = ":"
	valueSep = "*"
)

// Posting is one (entity, frequency) pair of a posting row.
type Posting struct {
	EntityID int
	Freq     int
}

// Row is the posting row of one token, ordered by ascending EntityID. A
// frequency of zero is never stored.
type Row []Posting

// ParseRow decodes a serialized row such as "0*3:7*1".
func ParseRow(line string) (Row, error) {
	if line == "" {
		return nil, nil
	}
	parts := strings.Split(line, pairSep)
	row := make(Row, 0, len(parts))
	for _, part := range parts {
		a, b, err := splitPair(part)
		if err != nil {
			return nil, fmt.Errorf("parsing posting %q: %w", part, err)
		}
		if b == 0 {
			continue
		}
		row = append(row, Posting{EntityID: a, Freq: b})
	}
	sort.SliceStable(row, func(i, j int) bool {
		return row[i].EntityID < row[j].EntityID
	})
	return row, nil
}

// String encodes the row in its on-disk form.
func (r Row) String() string {
	var sb strings.Builder
	for i, p := range r {
		if i > 0 {
			sb.WriteString(pairSep)
		}
		sb.WriteString(strconv.Itoa(p.EntityID))
		sb.WriteString(valueSep)
		sb.WriteString(strconv.Itoa(p.Freq))
	}
	return sb.String()
}

// Set returns the row with entityID's frequency replaced by freq. A zero freq
// removes the entry; removing an absent entity leaves the row unchanged.
func (r Row) Set(entityID, freq int) Row {
	i := sort.Search(len(r), func(i int) bool {
		return r[i].EntityID >= entityID
	})
	present := i < len(r) && r[i].EntityID == entityID
	switch {
	case freq <= 0 && !present:
		return r
	case freq <= 0:
		out := make(Row, 0, len(r)-1)
		out = append(out, r[:i]...)
		return append(out, r[i+1:]...)
	case present:
		out := make(Row, len(r))
		copy(out, r)
		out[i].Freq = freq
		return out
	default:
		out := make(Row, 0, len(r)+1)
		out = append(out, r[:i]...)
		out = append(out, Posting{EntityID: entityID, Freq: freq})
		return append(out, r[i:]...)
	}
}

// Total sums the frequencies of every entity in the row.
func (r Row) Total() int {
	total := 0
	for _, p := range r {
		total += p.Freq
	}
	return total
}

// UpdateRow applies a single (entityID, freq) update to a serialized row and
// returns the new serialized row.
func UpdateRow(line string, entityID, freq int) (string, error) {
	row, err := ParseRow(line)
	if err != nil {
		return "", err
	}
	return row.Set(entityID, freq).String(), nil
}

func splitPair(s string) (int, int, error) {
	left, right, ok := strings.Cut(s, valueSep)
	if !ok {
		return 0, 0, fmt.Errorf("missing %q separator", valueSep)
	}
	a, err := strconv.Atoi(left)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(right)
	if err != nil {
		return 0, 0, err
	}
	if a < 0 || b < 0 {
		return 0, 0, fmt.Errorf("negative value in %q", s)
	}
	return a, b, nil
}
