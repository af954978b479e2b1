// Package lock provides the exclusive index lock. It serializes goroutines of
// one process with a semaphore and separate processes with an advisory file
// lock, and bounds how long a caller waits for both.
package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
)

const defaultRetryDelay = 50 * time.Millisecond

// Locker guards one lock file.
type Locker struct {
	path    string
	timeout time.Duration
	retry   time.Duration
	sem     chan struct{}
	file    *flock.Flock
	logger  *slog.Logger
}

// New creates a Locker on path. A zero timeout waits until ctx is done.
func New(path string, timeout, retry time.Duration) *Locker {
	if retry <= 0 {
		retry = defaultRetryDelay
	}
	return &Locker{
		path:    path,
		timeout: timeout,
		retry:   retry,
		sem:     make(chan struct{}, 1),
		file:    flock.New(path),
		logger:  slog.Default().With("component", "index-lock", "path", path),
	}
}

// Acquire blocks until the lock is held, the timeout elapses or ctx is done.
// The returned release func must be called exactly once.
func (l *Locker) Acquire(ctx context.Context) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	start := time.Now()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.ErrLockFailure, ctx.Err(), "waiting for %s", l.path)
	}

	ok, err := l.file.TryLockContext(ctx, l.retry)
	if err != nil || !ok {
		<-l.sem
		if err == nil {
			err = apperrors.ErrTimeout
		}
		return nil, apperrors.Wrap(apperrors.ErrLockFailure, err, "locking %s", l.path)
	}
	l.logger.Debug("lock acquired", "wait", time.Since(start))

	return func() {
		if err := l.file.Unlock(); err != nil {
			l.logger.Error("releasing lock", "error", err)
		}
		<-l.sem
	}, nil
}

// Close releases the underlying file handle.
func (l *Locker) Close() error {
	return l.file.Close()
}
