// Package ident assigns stable numeric IDs to entity names and tokens. Each
// table is an append-only file where a name's line number is its ID. Tables
// are cached in memory and reloaded when the file changes on disk.
package ident

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/lock"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
)

// Index owns the identifier tables of one index directory.
type Index struct {
	dir    string
	assign *lock.Locker
	mu     sync.Mutex
	tables map[string]*Table
	logger *slog.Logger
}

// New creates an Index over dir. ID assignment is serialized across
// processes through assign.
func New(dir string, assign *lock.Locker) *Index {
	return &Index{
		dir:    dir,
		assign: assign,
		tables: make(map[string]*Table),
		logger: slog.Default().With("component", "ident"),
	}
}

// Entities returns the entity name table.
func (ix *Index) Entities() *Table {
	return ix.table(segment.EntitiesFile)
}

// Tokens returns the token table of the shard for length.
func (ix *Index) Tokens(length int) *Table {
	return ix.table(segment.TokensName(length))
}

// Reset drops every cached table, forcing a reload on next use.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tables = make(map[string]*Table)
}

func (ix *Index) table(name string) *Table {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	t, ok := ix.tables[name]
	if !ok {
		t = &Table{
			path:   filepath.Join(ix.dir, name),
			assign: ix.assign,
			logger: ix.logger,
		}
		ix.tables[name] = t
	}
	return t
}

// Table is one identifier file.
type Table struct {
	path   string
	assign *lock.Locker
	logger *slog.Logger

	mu    sync.Mutex
	file  *segment.LineFile
	ids   map[string]int
	stamp segment.Stamp
}

// refresh reloads the table when the file on disk differs from the cached
// copy. Callers hold t.mu.
func (t *Table) refresh() error {
	stamp, err := segment.StatStamp(t.path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrAccessFailure, err, "identifier table %s", t.path)
	}
	if t.file != nil && stamp.Same(t.stamp) {
		return nil
	}
	f, err := segment.Load(t.path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrAccessFailure, err, "identifier table %s", t.path)
	}
	ids := make(map[string]int, f.Len())
	for i, name := range f.Lines() {
		if name == "" {
			continue
		}
		if _, dup := ids[name]; !dup {
			ids[name] = i
		}
	}
	t.file, t.ids, t.stamp = f, ids, f.Stamp()
	return nil
}

// Lookup returns the ID of name without assigning one.
func (t *Table) Lookup(name string) (int, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.refresh(); err != nil {
		return 0, false, err
	}
	id, ok := t.ids[name]
	return id, ok, nil
}

// Name returns the name stored under id.
func (t *Table) Name(id int) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.refresh(); err != nil {
		return "", false, err
	}
	name := t.file.Line(id)
	return name, name != "", nil
}

// Names returns every name indexed by ID. Unused slots are empty strings.
func (t *Table) Names() ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.refresh(); err != nil {
		return nil, err
	}
	return t.file.Lines(), nil
}

// checkName rejects names that cannot be stored as a single line.
func (t *Table) checkName(name string) error {
	if name == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Errorf("empty name"), "identifier table %s", t.path)
	}
	if strings.ContainsAny(name, "\r\n") {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Errorf("name %q contains a line break", name), "identifier table %s", t.path)
	}
	return nil
}

// Resolve returns IDs for names, appending the missing ones. When two callers
// race on the same new name the first one to take the assignment lock wins
// and the other receives the ID it just wrote.
func (t *Table) Resolve(ctx context.Context, names []string) (map[string]int, error) {
	for _, name := range names {
		if err := t.checkName(name); err != nil {
			return nil, err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.refresh(); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(names))
	missing := false
	for _, name := range names {
		id, ok := t.ids[name]
		if !ok {
			missing = true
			break
		}
		out[name] = id
	}
	if !missing {
		return out, nil
	}

	release, err := t.assign.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// another process may have appended since the check above
	if err := t.refresh(); err != nil {
		return nil, err
	}
	added := 0
	for _, name := range names {
		id, ok := t.ids[name]
		if !ok {
			id = t.file.Append(name)
			t.ids[name] = id
			added++
		}
		out[name] = id
	}
	if added == 0 {
		return out, nil
	}
	if err := t.file.Save(); err != nil {
		t.file = nil
		return nil, apperrors.Wrap(apperrors.ErrWriteFailure, err, "identifier table %s", t.path)
	}
	t.stamp = t.file.Stamp()
	t.logger.Debug("identifiers assigned", "table", filepath.Base(t.path), "added", added)
	return out, nil
}

// Rename moves the ID of oldName to newName.
func (t *Table) Rename(ctx context.Context, oldName, newName string) error {
	if err := t.checkName(newName); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	release, err := t.assign.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := t.refresh(); err != nil {
		return err
	}
	id, ok := t.ids[oldName]
	if !ok {
		return fmt.Errorf("renaming %q: %w", oldName, apperrors.ErrEntityNotFound)
	}
	if _, taken := t.ids[newName]; taken {
		return fmt.Errorf("renaming %q to %q: %w", oldName, newName, apperrors.ErrEntityExists)
	}
	t.file.Set(id, newName)
	if err := t.file.Save(); err != nil {
		t.file = nil
		return apperrors.Wrap(apperrors.ErrWriteFailure, err, "identifier table %s", t.path)
	}
	delete(t.ids, oldName)
	t.ids[newName] = id
	t.stamp = t.file.Stamp()
	return nil
}
