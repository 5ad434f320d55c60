// Package library fetches books from the books server into local storage.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/database/books"
	"github.com/mrlokans/foxtales/internal/entities"
	"github.com/mrlokans/foxtales/internal/remote"
	"github.com/mrlokans/foxtales/internal/utils"
)

// Source is the part of the books server used for downloads.
type Source interface {
	ListBooks(ctx context.Context) ([]entities.BookMetadata, error)
	GetBook(ctx context.Context, id string) (*remote.RemoteBook, error)
	GetBookContent(ctx context.Context, id string) (map[string]string, error)
	GetCover(ctx context.Context, id string) (string, error)
}

// PartialImportError reports that a book was only partly written. The record
// and the chapters saved before the failure stay in storage; downloading the
// book again completes it.
type PartialImportError struct {
	BookID string
	Saved  int
	Total  int
	Err    error
}

func (e *PartialImportError) Error() string {
	return fmt.Sprintf("book %s partially imported (%d of %d chapters): %v", e.BookID, e.Saved, e.Total, e.Err)
}

func (e *PartialImportError) Unwrap() error {
	return e.Err
}

// Downloader writes remote books into the repository.
type Downloader struct {
	books  *books.Repository
	source Source
	group  singleflight.Group
}

// NewDownloader creates a downloader.
func NewDownloader(repo *books.Repository, source Source) *Downloader {
	return &Downloader{books: repo, source: source}
}

// Available lists the books offered by the server.
func (d *Downloader) Available(ctx context.Context) ([]entities.BookMetadata, error) {
	return d.source.ListBooks(ctx)
}

// Download fetches content, metadata and cover of a book and stores them.
// Concurrent downloads of the same book share one transfer.
func (d *Downloader) Download(ctx context.Context, id string) (*entities.BookRecord, error) {
	id = database.Key(id)
	v, err, shared := d.group.Do(id, func() (any, error) {
		return d.download(ctx, id)
	})
	if shared {
		log.Printf("Download of book %s joined a running download", id)
	}
	if err != nil {
		return nil, err
	}
	return v.(*entities.BookRecord), nil
}

func (d *Downloader) download(ctx context.Context, id string) (*entities.BookRecord, error) {
	content, err := d.source.GetBookContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content of book %s: %w", id, err)
	}

	book, err := d.source.GetBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata of book %s: %w", id, err)
	}

	cover, err := d.source.GetCover(ctx, id)
	var remoteErr *remote.RemoteError
	switch {
	case errors.As(err, &remoteErr):
		log.Printf("Book %s has no cover: %v", id, err)
		cover = ""
	case err != nil:
		return nil, fmt.Errorf("failed to fetch cover of book %s: %w", id, err)
	}
	if cover == "" {
		cover = book.Cover
	}

	ids := make([]string, 0, len(content))
	for chapterID := range content {
		if chapterID == database.CoverKey {
			continue
		}
		ids = append(ids, chapterID)
	}
	utils.SortNatural(ids)

	chapters := make([]entities.ChapterPayload, 0, len(ids))
	for _, chapterID := range ids {
		chapters = append(chapters, entities.ChapterPayload{ID: chapterID, Data: content[chapterID]})
	}

	meta := book.BookMetadata
	meta.Identifier = id
	record, err := d.Import(ctx, meta, cover, chapters)
	if err != nil {
		return nil, err
	}

	log.Printf("Downloaded book %s (%q, %d chapters)", id, record.Title, len(chapters))
	return record, nil
}

// Import stores a book: the record first, then the cover, then each chapter
// in order. The writes are independent; the first failure stops the import
// and is returned as a *PartialImportError once the record exists.
// When meta lists no chapters the record references the given ones.
func (d *Downloader) Import(ctx context.Context, meta entities.BookMetadata, cover string, chapters []entities.ChapterPayload) (*entities.BookRecord, error) {
	meta.Identifier = database.Key(meta.Identifier)
	if len(meta.Chapters) == 0 {
		meta.Chapters = make([]entities.ChapterRef, 0, len(chapters))
		for _, chapter := range chapters {
			meta.Chapters = append(meta.Chapters, entities.ChapterRef{Identifier: chapter.ID, ContentRef: chapter.ID})
		}
	}

	record, err := d.books.SaveBook(ctx, meta.Identifier, meta, cover)
	if err != nil {
		return nil, err
	}

	if cover != "" {
		if err := d.books.SaveCover(ctx, meta.Identifier, cover); err != nil {
			return record, &PartialImportError{BookID: meta.Identifier, Total: len(chapters), Err: err}
		}
	}

	for i, chapter := range chapters {
		if err := d.books.SaveChapter(ctx, meta.Identifier, chapter.ID, chapter.Data); err != nil {
			return record, &PartialImportError{BookID: meta.Identifier, Saved: i, Total: len(chapters), Err: err}
		}
	}
	return record, nil
}
