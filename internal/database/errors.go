package database

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a database, table or key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName is returned for database or table names that cannot be
	// mapped onto a file or an SQL identifier.
	ErrInvalidName = errors.New("invalid name")

	// ErrVersionDowngrade is returned when a database on disk is newer than
	// the registered schema.
	ErrVersionDowngrade = errors.New("database version downgrade is not supported")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// StoreError wraps a failure of the underlying storage engine.
type StoreError struct {
	Op       string
	Database string
	Table    string
	Err      error
}

func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Database, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Database, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(database, table, key string) error {
	switch {
	case key != "":
		return fmt.Errorf("%s/%s/%s: %w", database, table, key, ErrNotFound)
	case table != "":
		return fmt.Errorf("%s/%s: %w", database, table, ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", database, ErrNotFound)
	}
}
