// Package persist batches workspace mutations into idle-delayed writes.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
)

const defaultIdleDelay = 800 * time.Millisecond

// SnapshotFunc returns the bundle to write. It is called at flush time, so
// the newest state wins regardless of how many mutations were coalesced.
type SnapshotFunc func() domain.Bundle

type entry struct {
	snapshot SnapshotFunc
	timer    *time.Timer
}

// Queue writes an account's bundle once no mutation has been scheduled for
// the idle delay. Failed writes keep the account dirty; the next Schedule or
// Flush retries them.
type Queue struct {
	repo   store.Repository
	delay  time.Duration
	logger *slog.Logger

	// writeMu serialises snapshot+Put so an older snapshot can never land
	// after a newer one.
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*entry
	closed  bool
}

func NewQueue(repo store.Repository, delay time.Duration, logger *slog.Logger) *Queue {
	if delay <= 0 {
		delay = defaultIdleDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		repo:    repo,
		delay:   delay,
		logger:  logger.With("component", "persist"),
		pending: make(map[string]*entry),
	}
}

// Schedule marks userID dirty and pushes its write back by the idle delay.
func (q *Queue) Schedule(userID string, snapshot SnapshotFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.pending[userID]
	if !ok {
		e = &entry{}
		q.pending[userID] = e
	}
	e.snapshot = snapshot
	if q.closed {
		return
	}
	if e.timer == nil {
		e.timer = time.AfterFunc(q.delay, func() { q.flushIdle(userID) })
		return
	}
	e.timer.Reset(q.delay)
}

// Pending reports how many accounts have unsaved changes.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) Dirty(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[userID]
	return ok
}

func (q *Queue) flushIdle(userID string) {
	q.mu.Lock()
	e, ok := q.pending[userID]
	if ok {
		delete(q.pending, userID)
	}
	q.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.write(ctx, userID, e.snapshot); err != nil {
		q.logger.Error("idle flush failed", "user_id", userID, "error", err)
	}
}

// Flush writes every dirty account now.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	batch := make(map[string]SnapshotFunc, len(q.pending))
	for userID, e := range q.pending {
		if e.timer != nil {
			e.timer.Stop()
		}
		batch[userID] = e.snapshot
	}
	clear(q.pending)
	q.mu.Unlock()

	var errs []error
	for userID, snapshot := range batch {
		if err := q.write(ctx, userID, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("flushing %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops idle timers and flushes what is left. Later Schedule calls
// only mark accounts dirty; a final Flush is then up to the caller.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return q.Flush(ctx)
}

func (q *Queue) write(ctx context.Context, userID string, snapshot SnapshotFunc) error {
	q.writeMu.Lock()
	defer q.writeMu.Unlock()

	bundle := snapshot()
	if err := q.repo.Put(ctx, userID, bundle); err != nil {
		q.markDirty(userID, snapshot)
		return err
	}
	q.logger.Debug("bundle saved", "user_id", userID, "sales", len(bundle.Sales), "products", len(bundle.Products))
	return nil
}

// markDirty re-registers a failed write without arming a timer, unless a
// newer Schedule already did.
func (q *Queue) markDirty(userID string, snapshot SnapshotFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[userID]; ok {
		return
	}
	q.pending[userID] = &entry{snapshot: snapshot}
}
