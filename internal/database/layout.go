package database

import (
	"strings"

	"gorm.io/gorm/logger"
)

// Layout of the library databases.
const (
	// BooksDatabase holds book records and the pending sync queue.
	BooksDatabase = "books"
	BooksTable    = "books"
	UpdatesTable  = "db_updates"

	// BooksSchemaVersion is the current version of the books database.
	BooksSchemaVersion = 4

	// ContentTable is the table inside every per-book content database.
	ContentTable = "data"
	// CoverKey is the reserved content entry holding the cover image.
	CoverKey = "cover"

	contentPrefix = "book_"
)

// BooksSchema creates the books table on a fresh database and the sync
// queue table when moving past version 3.
var BooksSchema = Schema{
	Version: BooksSchemaVersion,
	Upgrade: upgradeBooks,
}

func upgradeBooks(u *Upgrade, oldVersion, newVersion int) error {
	for version := oldVersion; version < newVersion; version++ {
		switch version {
		case 0:
			if err := u.CreateTable(BooksTable); err != nil {
				return err
			}
		case 3:
			if err := u.CreateTable(UpdatesTable); err != nil {
				return err
			}
		}
	}
	return nil
}

// ContentDatabase returns the name of the content database of a book.
func ContentDatabase(bookID string) string {
	return contentPrefix + bookID
}

// BookIDFromContentDatabase is the inverse of ContentDatabase.
func BookIDFromContentDatabase(name string) (string, bool) {
	if !strings.HasPrefix(name, contentPrefix) || len(name) == len(contentPrefix) {
		return "", false
	}
	return strings.TrimPrefix(name, contentPrefix), true
}

// NewLibraryStore opens a store with the library schemas registered.
func NewLibraryStore(dir string, debug bool) (*Store, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return NewStore(dir, WithLogLevel(level), WithSchema(BooksDatabase, BooksSchema))
}
