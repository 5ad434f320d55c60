// Package books provides storage for book records, chapter payloads and covers.
//
// Book records live in the "books" table of the books database. Each
// downloaded book additionally owns a content database named book_<id> whose
// "data" table maps chapter identifiers to payloads, plus a reserved "cover"
// entry.
//
// Writes are independent operations: saving a book, its cover and its
// chapters is not atomic, and a failure partway leaves a partially populated
// book behind. Re-downloading repairs it.
//
// Identifiers are normalised with database.Key on the way in, so " b1" and
// "b1" address the same record and content database. Record writes for one
// book are serialised by a per-book lock; callers doing their own
// read-modify-write hold Lock around it.
//
// # Usage
//
//	repo := books.NewRepository(store)
//	record, err := repo.LoadBook(ctx, "b1")
package books

import (
	"context"
	"fmt"
	"sort"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/entities"
)

// Repository handles book records and per-book content.
type Repository struct {
	store   *database.Store
	records *database.Table
	locks   *keyedMutex
}

// NewRepository creates a new books repository.
func NewRepository(store *database.Store) *Repository {
	return &Repository{
		store:   store,
		records: store.Table(database.BooksDatabase, database.BooksTable),
		locks:   newKeyedMutex(),
	}
}

// Lock blocks until no other writer holds the record of the book and returns
// the unlock func. It is not reentrant.
func (r *Repository) Lock(id string) func() {
	return r.locks.Lock(database.Key(id))
}

// SaveBook writes the record for a book, replacing any previous record.
// The read status of an existing record is kept, and so is its progress
// unless meta carries a newer one.
func (r *Repository) SaveBook(ctx context.Context, id string, meta entities.BookMetadata, cover string) (*entities.BookRecord, error) {
	id = database.Key(id)
	if id == "" {
		return nil, fmt.Errorf("book identifier is required")
	}

	unlock := r.Lock(id)
	defer unlock()

	record := entities.BookRecord{
		Identifier: id,
		Title:      meta.Title,
		Format:     meta.Format,
		MimeType:   meta.MimeType,
		Version:    meta.Version,
		Chapters:   meta.Chapters,
		Cover:      cover,
	}
	if record.Chapters == nil {
		record.Chapters = []entities.ChapterRef{}
	}

	if meta.Progress != nil {
		record.Progress = *meta.Progress
	}
	existing, err := r.LoadBook(ctx, id)
	switch {
	case err == nil:
		if meta.Progress == nil || meta.Progress.LastUpdated < existing.Progress.LastUpdated {
			record.Progress = existing.Progress
		}
		record.ReadStatus = existing.ReadStatus
	case !database.IsNotFound(err):
		return nil, err
	}

	if err := r.PutRecord(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// PutRecord writes a full record as is. The caller holds Lock for the book.
func (r *Repository) PutRecord(ctx context.Context, record *entities.BookRecord) error {
	record.Identifier = database.Key(record.Identifier)
	if record.Identifier == "" {
		return fmt.Errorf("book identifier is required")
	}
	if err := r.records.Put(ctx, record.Identifier, record); err != nil {
		return fmt.Errorf("save book %s: %w", record.Identifier, err)
	}
	return nil
}

// LoadBook returns the record of a book or an error wrapping database.ErrNotFound.
func (r *Repository) LoadBook(ctx context.Context, id string) (*entities.BookRecord, error) {
	id = database.Key(id)
	record, err := database.Load[entities.BookRecord](ctx, r.records, id)
	if err != nil {
		return nil, fmt.Errorf("load book %s: %w", id, err)
	}
	return &record, nil
}

// ListBooks returns all records, most recently read first. The order is
// computed on every read; storage order is by identifier.
func (r *Repository) ListBooks(ctx context.Context) ([]entities.BookRecord, error) {
	records, err := database.LoadAll[entities.BookRecord](ctx, r.records)
	if database.IsNotFound(err) {
		return []entities.BookRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	SortByLastRead(records)
	return records, nil
}

// SortByLastRead orders records by descending progress.lastUpdated.
func SortByLastRead(records []entities.BookRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Progress.LastUpdated > records[j].Progress.LastUpdated
	})
}

// DeleteBook removes the record and the content database of a book.
func (r *Repository) DeleteBook(ctx context.Context, id string) error {
	id = database.Key(id)
	unlock := r.Lock(id)
	defer unlock()

	if err := r.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book %s: %w", id, err)
	}
	if err := r.store.DropDatabase(ctx, database.ContentDatabase(id)); err != nil {
		return fmt.Errorf("delete content of book %s: %w", id, err)
	}
	return nil
}

// SaveChapter writes one chapter payload into the book's content database.
func (r *Repository) SaveChapter(ctx context.Context, id, chapterID, payload string) error {
	if chapterID == database.CoverKey {
		return fmt.Errorf("chapter identifier %q is reserved", chapterID)
	}
	chapter := entities.ChapterPayload{ID: chapterID, Data: payload}
	if err := r.content(id).Put(ctx, chapterID, chapter); err != nil {
		return fmt.Errorf("save chapter %s of book %s: %w", chapterID, id, err)
	}
	return nil
}

// LoadChapter returns a chapter payload or an error wrapping database.ErrNotFound.
func (r *Repository) LoadChapter(ctx context.Context, id, chapterID string) (*entities.ChapterPayload, error) {
	chapter, err := database.Load[entities.ChapterPayload](ctx, r.content(id), chapterID)
	if err != nil {
		return nil, fmt.Errorf("load chapter %s of book %s: %w", chapterID, id, err)
	}
	return &chapter, nil
}

// ListChapterIDs returns the identifiers of stored chapters, excluding the cover.
func (r *Repository) ListChapterIDs(ctx context.Context, id string) ([]string, error) {
	keys, err := r.content(id).Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chapters of book %s: %w", id, err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != database.CoverKey {
			ids = append(ids, key)
		}
	}
	return ids, nil
}

// SaveCover writes the reserved cover entry of the content database.
func (r *Repository) SaveCover(ctx context.Context, id, cover string) error {
	entry := entities.ChapterPayload{ID: database.CoverKey, Data: cover}
	if err := r.content(id).Put(ctx, database.CoverKey, entry); err != nil {
		return fmt.Errorf("save cover of book %s: %w", id, err)
	}
	return nil
}

// LoadCover returns the base64 cover image of a book.
func (r *Repository) LoadCover(ctx context.Context, id string) (string, error) {
	entry, err := database.Load[entities.ChapterPayload](ctx, r.content(id), database.CoverKey)
	if err != nil {
		return "", fmt.Errorf("load cover of book %s: %w", id, err)
	}
	return entry.Data, nil
}

// MissingChapters returns the chapters referenced by the record that have
// no stored payload, which is how a partial download shows up.
func (r *Repository) MissingChapters(ctx context.Context, record *entities.BookRecord) ([]string, error) {
	stored, err := r.ListChapterIDs(ctx, record.Identifier)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(stored))
	for _, id := range stored {
		have[id] = true
	}

	var missing []string
	for _, chapter := range record.Chapters {
		if !have[chapter.Identifier] {
			missing = append(missing, chapter.Identifier)
		}
	}
	return missing, nil
}

func (r *Repository) content(id string) *database.Table {
	return r.store.Table(ContentDatabase(id), database.ContentTable)
}

// ContentDatabase names the content database of a book after normalising
// its identifier the way the repository does.
func ContentDatabase(id string) string {
	return database.ContentDatabase(database.Key(id))
}
