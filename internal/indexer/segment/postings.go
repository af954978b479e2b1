package segment

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/index"
)

// Postings is the frequency index of one length shard: one posting row per
// token ID.
type Postings struct {
	length int
	file   *LineFile
}

// LoadPostings reads the posting rows of the shard for length.
func LoadPostings(dir string, length int) (*Postings, error) {
	f, err := Load(PostingsPath(dir, length))
	if err != nil {
		return nil, err
	}
	return &Postings{length: length, file: f}, nil
}

// Length returns the shard's token length.
func (p *Postings) Length() int {
	return p.length
}

// Len returns the number of stored rows.
func (p *Postings) Len() int {
	return p.file.Len()
}

// Row decodes the posting row of tokenID.
func (p *Postings) Row(tokenID int) (index.Row, error) {
	row, err := index.ParseRow(p.file.Line(tokenID))
	if err != nil {
		return nil, fmt.Errorf("shard %d token %d: %w", p.length, tokenID, err)
	}
	return row, nil
}

// Update sets entityID's frequency in tokenID's row. Zero removes it.
func (p *Postings) Update(tokenID, entityID, freq int) error {
	line, err := index.UpdateRow(p.file.Line(tokenID), entityID, freq)
	if err != nil {
		return fmt.Errorf("shard %d token %d: %w", p.length, tokenID, err)
	}
	p.file.Set(tokenID, line)
	return nil
}

// Save persists the shard.
func (p *Postings) Save() error {
	return p.file.Save()
}
