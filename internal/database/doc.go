// Package database provides the keyed object store the library is built on.
//
// # Model
//
// A Store is a directory of named databases (one SQLite file each). Every
// database holds key/value tables whose values are opaque JSON documents:
//
//	data/
//	├── books.db           # tables "books" and "db_updates"
//	├── book_<id>.db       # table "data": chapters plus the "cover" entry
//	└── local_storage.db   # table "items": auth token
//
// # Lazy creation
//
// Databases and tables are created by the first write, never by a read.
// Reads against a missing database, table or key fail with ErrNotFound;
// LoadOr returns a caller supplied default instead.
//
//	store, err := database.NewLibraryStore("./data", false)
//	books := store.Table(database.BooksDatabase, database.BooksTable)
//	record, err := database.Load[entities.BookRecord](ctx, books, "b1")
//
// # Schema versions
//
// A database registered with WithSchema is upgraded once, inside a
// transaction, when its recorded version (PRAGMA user_version) is lower than
// the schema version. Opening a newer database fails with ErrVersionDowngrade.
//
// # Sub-packages
//
//   - books: book records, chapter payloads and covers
//   - syncqueue: the pending update outbox drained by the sync engine
package database
