package segment

import (
	"fmt"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/index"
)

// Reverse records, per entity ID, which shard keys are currently posted for
// that entity.
type Reverse struct {
	file *LineFile
}

// LoadReverse reads the reverse index of dir.
func LoadReverse(dir string) (*Reverse, error) {
	f, err := Load(filepath.Join(dir, ReverseFile))
	if err != nil {
		return nil, err
	}
	return &Reverse{file: f}, nil
}

// Assignment returns the keys recorded for entityID.
func (r *Reverse) Assignment(entityID int) ([]index.Key, error) {
	keys, err := index.ParseAssignment(r.file.Line(entityID))
	if err != nil {
		return nil, fmt.Errorf("reverse entry %d: %w", entityID, err)
	}
	return keys, nil
}

// SetAssignment replaces the keys recorded for entityID.
func (r *Reverse) SetAssignment(entityID int, keys []index.Key) {
	r.file.Set(entityID, index.FormatAssignment(keys))
}

// Save persists the reverse index.
func (r *Reverse) Save() error {
	return r.file.Save()
}
