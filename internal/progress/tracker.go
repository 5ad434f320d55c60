// Package progress records reading positions and read status of books.
//
// Every write is a read-modify-write of the full book record followed by an
// enqueue of the new document on the sync queue. Writes for the same book
// hold the repository's per-book lock, so neither concurrent callers nor a
// metadata refresh lose an intermediate update.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/database/books"
	"github.com/mrlokans/foxtales/internal/database/syncqueue"
	"github.com/mrlokans/foxtales/internal/entities"
)

var ErrInvalidPosition = errors.New("chapter and position must not be negative")

// Tracker records progress for books in the library.
type Tracker struct {
	books *books.Repository
	queue *syncqueue.Repository
	now   func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker writing records to repo and pending updates to queue.
func NewTracker(repo *books.Repository, queue *syncqueue.Repository, opts ...Option) *Tracker {
	t := &Tracker{
		books: repo,
		queue: queue,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordProgress stores the new position of a book and queues it for sync.
// lastUpdated never moves backwards, even when the clock does.
func (t *Tracker) RecordProgress(ctx context.Context, id string, chapter, position int) (*entities.Progress, error) {
	if chapter < 0 || position < 0 {
		return nil, ErrInvalidPosition
	}

	unlock := t.books.Lock(id)
	defer unlock()

	record, err := t.books.LoadBook(ctx, id)
	if err != nil {
		return nil, err
	}

	record.Progress = entities.Progress{
		Chapter:     chapter,
		Position:    position,
		LastUpdated: t.stamp(record.Progress.LastUpdated),
	}
	if err := t.books.PutRecord(ctx, record); err != nil {
		return nil, err
	}
	if err := t.queue.Enqueue(ctx, entities.SyncKindProgress, record.Identifier, record.Progress); err != nil {
		return nil, err
	}

	return &record.Progress, nil
}

// CurrentProgress returns the position of a book, or the start of the book
// when nothing has been recorded yet.
func (t *Tracker) CurrentProgress(ctx context.Context, id string) (entities.Position, error) {
	record, err := t.books.LoadBook(ctx, id)
	if database.IsNotFound(err) {
		return entities.Position{}, nil
	}
	if err != nil {
		return entities.Position{}, err
	}
	return entities.Position{Chapter: record.Progress.Chapter, Position: record.Progress.Position}, nil
}

// SetReadStatus marks a book as read or unread and queues the change for sync.
func (t *Tracker) SetReadStatus(ctx context.Context, id string, read bool) (*entities.ReadStatus, error) {
	unlock := t.books.Lock(id)
	defer unlock()

	record, err := t.books.LoadBook(ctx, id)
	if err != nil {
		return nil, err
	}

	record.ReadStatus = entities.ReadStatus{
		Read:        read,
		LastUpdated: t.stamp(record.ReadStatus.LastUpdated),
	}
	if err := t.books.PutRecord(ctx, record); err != nil {
		return nil, err
	}
	if err := t.queue.Enqueue(ctx, entities.SyncKindReadStatus, record.Identifier, record.ReadStatus); err != nil {
		return nil, err
	}

	return &record.ReadStatus, nil
}

func (t *Tracker) stamp(previous int64) int64 {
	now := t.now().Unix()
	if now < previous {
		return previous
	}
	return now
}
