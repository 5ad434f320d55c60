package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/foxtales/internal/entities"
)

const fileExt = ".db"

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Store is a directory of named SQLite databases, each holding any number of
// key/value tables. Databases are opened lazily and kept open until Close.
type Store struct {
	dir      string
	logLevel logger.LogLevel
	schemas  map[string]Schema

	mu     sync.Mutex
	conns  map[string]*conn
	closed bool
}

type conn struct {
	db *gorm.DB

	mu     sync.Mutex
	tables map[string]bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogLevel sets the gorm log level used for every database.
func WithLogLevel(level logger.LogLevel) Option {
	return func(s *Store) {
		s.logLevel = level
	}
}

// WithSchema registers the expected schema of a named database.
func WithSchema(name string, schema Schema) Option {
	return func(s *Store) {
		s.schemas[name] = schema
	}
}

// NewStore creates the data directory if needed and returns a store rooted at it.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	s := &Store{
		dir:      dir,
		logLevel: logger.Silent,
		schemas:  make(map[string]Schema),
		conns:    make(map[string]*conn),
	}
	for _, opt := range opts {
		opt(s)
	}

	log.Printf("Store initialized at %s", dir)
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Table returns a handle to a table. Nothing is opened or created until an
// operation runs on the handle.
func (s *Store) Table(database, table string) *Table {
	return &Table{store: s, database: database, name: table}
}

// ListDatabases returns the names of all databases present on disk.
func (s *Store) ListDatabases() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &StoreError{Op: "list", Database: s.dir, Err: err}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}

// DropDatabase closes and removes a database. Dropping a database that does
// not exist is a no-op.
func (s *Store) DropDatabase(ctx context.Context, name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: database %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.conns[name]; ok {
		delete(s.conns, name)
		if err := c.close(); err != nil {
			return &StoreError{Op: "drop", Database: name, Err: err}
		}
	}

	path := s.path(name)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &StoreError{Op: "drop", Database: name, Err: err}
		}
	}

	log.Printf("Dropped database %s", name)
	return nil
}

// Ping verifies that the data directory is reachable.
func (s *Store) Ping() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// Close closes every open database. The store cannot be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, c := range s.conns {
		if err := c.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	s.conns = make(map[string]*conn)
	s.closed = true
	return errors.Join(errs...)
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// handle returns an open connection to the named database. With create set
// to false a missing database yields ErrNotFound and no file is written.
func (s *Store) handle(ctx context.Context, name string, create bool) (*conn, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: database %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if c, ok := s.conns[name]; ok {
		return c, nil
	}

	path := s.path(name)
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, notFound(name, "", "")
		} else if err != nil {
			return nil, &StoreError{Op: "open", Database: name, Err: err}
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(s.logLevel),
	})
	if err != nil {
		return nil, &StoreError{Op: "open", Database: name, Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &StoreError{Op: "open", Database: name, Err: err}
	}
	// SQLite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	c := &conn{db: db, tables: make(map[string]bool)}
	if schema, ok := s.schemas[name]; ok {
		if err := c.migrate(ctx, name, schema); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	s.conns[name] = c
	return c, nil
}

func (c *conn) hasTable(ctx context.Context, table string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tables[table] {
		return true
	}
	if c.db.WithContext(ctx).Migrator().HasTable(table) {
		c.tables[table] = true
		return true
	}
	return false
}

// ensureTable creates the table on first write.
func (c *conn) ensureTable(ctx context.Context, database, table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tables[table] {
		return nil
	}
	db := c.db.WithContext(ctx)
	if !db.Migrator().HasTable(table) {
		if err := db.Table(table).AutoMigrate(&entities.Entry{}); err != nil {
			return &StoreError{Op: "create", Database: database, Table: table, Err: err}
		}
		log.Printf("Created table %s/%s", database, table)
	}
	c.tables[table] = true
	return nil
}

func (c *conn) close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
