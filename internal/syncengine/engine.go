// Package syncengine drains the sync queue against the books server.
//
// A run for one kind reads the pending mapping, sends every entry, and only
// when all of them were accepted removes the delivered snapshot from the
// queue. When the server cannot be reached the run stops and leaves the
// queue as it was; the next explicit sync retries. Any other failure is
// returned to the caller, again without touching the queue. Delivery is
// at-least-once: the server receives the full document for a book, so
// resending it is harmless.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/foxtales/internal/database/syncqueue"
	"github.com/mrlokans/foxtales/internal/entities"
	"github.com/mrlokans/foxtales/internal/remote"
)

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrUnknownKind    = errors.New("unknown sync kind")
)

// Publisher delivers one pending document to the server.
type Publisher interface {
	SetBookMetadata(ctx context.Context, bookID string, document json.RawMessage) error
}

// Engine runs sync passes. It is safe for concurrent use; a second run of a
// kind that is already draining fails with ErrSyncInProgress.
type Engine struct {
	queue     *syncqueue.Repository
	publisher Publisher
	now       func() time.Time

	mu     sync.Mutex
	status map[entities.SyncKind]*entities.SyncStatus
}

// NewEngine creates a sync engine.
func NewEngine(queue *syncqueue.Repository, publisher Publisher) *Engine {
	status := make(map[entities.SyncKind]*entities.SyncStatus, len(entities.SyncKinds))
	for _, kind := range entities.SyncKinds {
		status[kind] = &entities.SyncStatus{Kind: kind, State: entities.SyncStateIdle}
	}
	return &Engine{
		queue:     queue,
		publisher: publisher,
		now:       time.Now,
		status:    status,
	}
}

// SyncAll runs every kind in order. A kind that is unreachable or already
// draining does not stop the others; the errors of failed kinds are joined.
func (e *Engine) SyncAll(ctx context.Context) error {
	var errs []error
	for _, kind := range entities.SyncKinds {
		err := e.SyncKind(ctx, kind)
		if errors.Is(err, ErrSyncInProgress) {
			log.Printf("[SYNC] %s skipped: already draining", kind)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncKind drains the queue of one kind. An unreachable server is not an
// error: the queue is kept and nil is returned.
func (e *Engine) SyncKind(ctx context.Context, kind entities.SyncKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	runID, err := e.begin(kind)
	if err != nil {
		return err
	}

	pending, err := e.queue.Peek(ctx, kind)
	if err != nil {
		e.finish(kind, entities.SyncOutcomePartialFailure, 0, err)
		return err
	}
	if len(pending) == 0 {
		e.finish(kind, entities.SyncOutcomeSuccess, 0, nil)
		return nil
	}

	log.Printf("[SYNC] run %s: draining %d %s update(s)", runID, len(pending), kind)

	delivered := make(syncqueue.Pending, len(pending))
	for _, bookID := range sortedKeys(pending) {
		if err := ctx.Err(); err != nil {
			e.finish(kind, entities.SyncOutcomePartialFailure, len(delivered), err)
			return err
		}

		err := e.publisher.SetBookMetadata(ctx, bookID, pending[bookID])
		if remote.IsTransient(err) {
			log.Printf("[SYNC] run %s: remote unreachable, %s kept for next sync: %v", runID, kind, err)
			e.finish(kind, entities.SyncOutcomeDeferred, len(delivered), nil)
			return nil
		}
		if err != nil {
			err = fmt.Errorf("sync %s for book %s: %w", kind, bookID, err)
			log.Printf("[SYNC] run %s: %v", runID, err)
			e.finish(kind, entities.SyncOutcomePartialFailure, len(delivered), err)
			return err
		}
		delivered[bookID] = pending[bookID]
	}

	left, err := e.queue.Acknowledge(ctx, kind, delivered)
	if err != nil {
		e.finish(kind, entities.SyncOutcomePartialFailure, len(delivered), err)
		return err
	}

	log.Printf("[SYNC] run %s: delivered %d %s update(s), %d pending", runID, len(delivered), kind, left)
	e.finish(kind, entities.SyncOutcomeSuccess, len(delivered), nil)
	return nil
}

// Status returns the state of one kind with its current queue length.
func (e *Engine) Status(ctx context.Context, kind entities.SyncKind) (entities.SyncStatus, error) {
	if !kind.Valid() {
		return entities.SyncStatus{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	e.mu.Lock()
	status := *e.status[kind]
	e.mu.Unlock()

	pending, err := e.queue.Count(ctx, kind)
	if err != nil {
		return entities.SyncStatus{}, err
	}
	status.Pending = pending
	return status, nil
}

// Statuses returns the status of every kind.
func (e *Engine) Statuses(ctx context.Context) ([]entities.SyncStatus, error) {
	statuses := make([]entities.SyncStatus, 0, len(entities.SyncKinds))
	for _, kind := range entities.SyncKinds {
		status, err := e.Status(ctx, kind)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (e *Engine) begin(kind entities.SyncKind) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := e.status[kind]
	if status.State == entities.SyncStateDraining {
		return "", fmt.Errorf("%s: %w", kind, ErrSyncInProgress)
	}

	started := e.now()
	status.State = entities.SyncStateDraining
	status.RunID = uuid.NewString()
	status.StartedAt = &started
	status.Error = ""
	return status.RunID, nil
}

func (e *Engine) finish(kind entities.SyncKind, outcome entities.SyncOutcome, delivered int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	completed := e.now()
	status := e.status[kind]
	status.State = entities.SyncStateIdle
	status.LastOutcome = outcome
	status.Delivered = delivered
	status.CompletedAt = &completed
	if err != nil {
		status.Error = err.Error()
	}
}

func sortedKeys(pending syncqueue.Pending) []string {
	keys := make([]string, 0, len(pending))
	for key := range pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
