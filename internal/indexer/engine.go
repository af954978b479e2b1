package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/ident"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/lock"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
)

// EntityChecker reports whether an entity still exists in the content store.
// Lookups use it to drop postings of entities deleted behind the index's back.
type EntityChecker interface {
	EntityExists(ctx context.Context, name string) bool
}

// Engine is the fulltext collection over one index directory. It is the only
// writer of posting rows and reverse assignments, and keeps them consistent
// under the exclusive index lock.
type Engine struct {
	cfg       config.IndexerConfig
	ids       *ident.Index
	shards    *shard.Directory
	lock      *lock.Locker
	identLock *lock.Locker
	tokens    *tokenizer.Tokenizer
	checker   EntityChecker
	logger    *slog.Logger
}

// NewEngine opens the index in cfg.DataDir, creating the directory when it
// is missing. checker may be nil, in which case only entities without a name
// count as stale.
func NewEngine(cfg config.IndexerConfig, checker EntityChecker) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	identLock := lock.New(filepath.Join(cfg.DataDir, segment.IdentLockFile), cfg.LockTimeout, cfg.LockRetryDelay)
	e := &Engine{
		cfg:       cfg,
		ids:       ident.New(cfg.DataDir, identLock),
		shards:    shard.NewDirectory(cfg.DataDir, cfg.LengthCacheTTL),
		lock:      lock.New(filepath.Join(cfg.DataDir, segment.IndexLockFile), cfg.LockTimeout, cfg.LockRetryDelay),
		identLock: identLock,
		tokens:    tokenizer.New(cfg.MinWordLength),
		checker:   checker,
		logger:    slog.Default().With("component", "indexer", "data_dir", cfg.DataDir),
	}
	return e, nil
}

// Tokenizer returns the tokenizer matching the engine's minimum word length.
func (e *Engine) Tokenizer() *tokenizer.Tokenizer {
	return e.tokens
}

// TokenLength returns the shard length a token is stored under.
func (e *Engine) TokenLength(token string) int {
	return tokenizer.Length(token)
}

// AddEntity replaces the token set of the named entity with tokens. An empty
// tokens slice removes the entity from every shard.
func (e *Engine) AddEntity(ctx context.Context, name string, tokens []string) error {
	if name == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "entity name is empty")
	}
	// names and tokens are stored one per line
	for _, tok := range tokens {
		if strings.ContainsAny(tok, "\r\n") {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "token %q contains a line break", tok)
		}
	}
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	ids, err := e.ids.Entities().Resolve(ctx, []string{name})
	if err != nil {
		return fmt.Errorf("resolving entity %q: %w", name, err)
	}
	return e.replace(ctx, name, ids[name], tokens)
}

// DeleteEntity removes every posting of the named entity. Unknown names are
// ignored and never get an ID.
func (e *Engine) DeleteEntity(ctx context.Context, name string) error {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	id, ok, err := e.ids.Entities().Lookup(name)
	if err != nil {
		return fmt.Errorf("looking up entity %q: %w", name, err)
	}
	if !ok {
		return nil
	}
	return e.replace(ctx, name, id, nil)
}

// RenameEntity gives an indexed entity a new name, keeping its postings.
func (e *Engine) RenameEntity(ctx context.Context, oldName, newName string) error {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := e.ids.Entities().Rename(ctx, oldName, newName); err != nil {
		return err
	}
	e.logger.Info("entity renamed", "from", oldName, "to", newName)
	return nil
}

// replace runs the diff-on-write update for one entity. Callers hold the
// index lock.
func (e *Engine) replace(ctx context.Context, name string, entityID int, tokens []string) error {
	start := time.Now()
	reverse, err := segment.LoadReverse(e.cfg.DataDir)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrAccessFailure, err, "reverse index")
	}
	oldKeys, err := reverse.Assignment(entityID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrAccessFailure, err, "reverse index")
	}

	next, err := e.frequencies(ctx, tokens)
	if err != nil {
		return err
	}
	merged := index.Merge(index.Zeroed(oldKeys), next)

	created := false
	for length, rows := range merged.ByLength() {
		postings, err := segment.LoadPostings(e.cfg.DataDir, length)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrAccessFailure, err, "shard %d", length)
		}
		if postings.Len() == 0 {
			created = true
		}
		for tokenID, freq := range rows {
			if err := postings.Update(tokenID, entityID, freq); err != nil {
				return apperrors.Wrap(apperrors.ErrAccessFailure, err, "shard %d", length)
			}
		}
		if err := postings.Save(); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailure, err, "shard %d", length)
		}
	}

	keys := merged.NonZero()
	reverse.SetAssignment(entityID, keys)
	if err := reverse.Save(); err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailure, err, "reverse index")
	}
	if created {
		if err := e.shards.Invalidate(); err != nil {
			e.logger.Warn("shard cache not invalidated", "error", err)
		}
	}

	e.logger.Debug("entity indexed",
		"entity", name,
		"entity_id", entityID,
		"tokens", len(tokens),
		"postings", len(keys),
		"removed", len(merged)-len(keys),
		"took", time.Since(start),
	)
	return nil
}

// frequencies builds the {(length, tokenID): freq} table for tokens,
// assigning token IDs as needed.
func (e *Engine) frequencies(ctx context.Context, tokens []string) (index.Freqs, error) {
	out := make(index.Freqs)
	for length, counts := range index.CountTokens(tokens, tokenizer.Length) {
		words := make([]string, 0, len(counts))
		for w := range counts {
			words = append(words, w)
		}
		ids, err := e.ids.Tokens(length).Resolve(ctx, words)
		if err != nil {
			return nil, fmt.Errorf("resolving tokens of length %d: %w", length, err)
		}
		for w, freq := range counts {
			out[index.Key{Length: length, TokenID: ids[w]}] = freq
		}
	}
	return out, nil
}

// Entities returns the names of every entity that ever received an ID.
func (e *Engine) Entities() ([]string, error) {
	names, err := e.ids.Entities().Names()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// Clear deletes every index file. It is safe on a partial or empty index.
func (e *Engine) Clear(ctx context.Context) error {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.ErrAccessFailure, err, "listing index directory")
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !segment.IsShardFile(entry.Name()) {
			continue
		}
		if err := segment.Remove(filepath.Join(e.cfg.DataDir, entry.Name())); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailure, err, "clearing index")
		}
		removed++
	}
	for _, name := range []string{segment.EntitiesFile, segment.ReverseFile, segment.LengthCacheFile} {
		if err := segment.Remove(filepath.Join(e.cfg.DataDir, name)); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailure, err, "clearing index")
		}
	}
	e.ids.Reset()
	e.logger.Info("index cleared", "shard_files_removed", removed)
	return nil
}

// Close releases the lock file handles.
func (e *Engine) Close() error {
	if err := e.lock.Close(); err != nil {
		e.logger.Error("closing index lock", "error", err)
	}
	return e.identLock.Close()
}
