// Package syncqueue implements the outbox of pending updates drained by the
// sync engine.
//
// Pending updates live in the "db_updates" table of the books database, one
// row per sync kind. Each row maps a book identifier to the latest document
// to send for that book; a new update overwrites the previous one.
//
// The queue never drains itself. The engine reads with Peek and, once every
// entry has been delivered, calls Acknowledge (or Clear). An interruption
// between delivery and acknowledgement means the entries are sent again,
// which the remote treats as an idempotent update.
package syncqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/entities"
)

// Pending maps book identifiers to the JSON document awaiting delivery.
type Pending map[string]json.RawMessage

// Repository handles the pending update table.
type Repository struct {
	updates *database.Table

	// guards the read-modify-write of a kind's mapping
	mu sync.Mutex
}

// NewRepository creates a new sync queue repository.
func NewRepository(store *database.Store) *Repository {
	return &Repository{
		updates: store.Table(database.BooksDatabase, database.UpdatesTable),
	}
}

// Enqueue records data as the pending update of bookID for kind, replacing
// any update already pending for that book. data must encode to a JSON object.
func (r *Repository) Enqueue(ctx context.Context, kind entities.SyncKind, bookID string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s update for %s: %w", kind, bookID, err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return fmt.Errorf("%s update for %s must be a JSON object", kind, bookID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.load(ctx, kind)
	if err != nil {
		return err
	}
	pending[bookID] = raw

	if err := r.updates.Put(ctx, string(kind), pending); err != nil {
		return fmt.Errorf("enqueue %s update for %s: %w", kind, bookID, err)
	}
	return nil
}

// Peek returns the pending mapping for kind without modifying it. A kind with
// nothing queued yields an empty mapping.
func (r *Repository) Peek(ctx context.Context, kind entities.SyncKind) (Pending, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx, kind)
}

// Count returns the number of books with a pending update of kind.
func (r *Repository) Count(ctx context.Context, kind entities.SyncKind) (int, error) {
	pending, err := r.Peek(ctx, kind)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// Clear replaces the mapping of kind with an empty one.
func (r *Repository) Clear(ctx context.Context, kind entities.SyncKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.updates.Put(ctx, string(kind), Pending{}); err != nil {
		return fmt.Errorf("clear %s updates: %w", kind, err)
	}
	return nil
}

// Acknowledge removes the delivered entries whose stored document is still
// identical to what was delivered. Entries overwritten since the snapshot was
// taken stay pending. It returns the number of entries left.
func (r *Repository) Acknowledge(ctx context.Context, kind entities.SyncKind, delivered Pending) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.load(ctx, kind)
	if err != nil {
		return 0, err
	}

	for bookID, sent := range delivered {
		current, ok := pending[bookID]
		if ok && sameDocument(current, sent) {
			delete(pending, bookID)
		}
	}

	if err := r.updates.Put(ctx, string(kind), pending); err != nil {
		return 0, fmt.Errorf("acknowledge %s updates: %w", kind, err)
	}
	return len(pending), nil
}

func (r *Repository) load(ctx context.Context, kind entities.SyncKind) (Pending, error) {
	pending, err := database.LoadOr(ctx, r.updates, string(kind), Pending{})
	if err != nil {
		return nil, fmt.Errorf("load %s updates: %w", kind, err)
	}
	if pending == nil {
		pending = Pending{}
	}
	return pending, nil
}

func sameDocument(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
