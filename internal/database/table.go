package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/foxtales/internal/entities"
)

// Table is a handle to one key/value table of a named database.
//
// Reads never create anything: reading from a missing database or table
// fails with ErrNotFound. The first Put creates the database and the table.
type Table struct {
	store    *Store
	database string
	name     string
}

// Database returns the name of the database holding the table.
func (t *Table) Database() string {
	return t.database
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Get decodes the value stored under key into dest.
func (t *Table) Get(ctx context.Context, key string, dest any) error {
	c, err := t.open(ctx, false)
	if err != nil {
		return err
	}

	var entry entities.Entry
	err = c.db.WithContext(ctx).Table(t.name).Where("id = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(t.database, t.name, key)
	}
	if err != nil {
		return t.storeError("get", err)
	}

	if err := json.Unmarshal([]byte(entry.Value), dest); err != nil {
		return t.storeError("decode", fmt.Errorf("key %s: %w", key, err))
	}
	return nil
}

// GetAll returns every stored document ordered by key.
func (t *Table) GetAll(ctx context.Context) ([]json.RawMessage, error) {
	c, err := t.open(ctx, false)
	if err != nil {
		return nil, err
	}

	var entries []entities.Entry
	if err := c.db.WithContext(ctx).Table(t.name).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, t.storeError("get all", err)
	}

	values := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		values = append(values, json.RawMessage(entry.Value))
	}
	return values, nil
}

// Keys returns every key ordered ascending. A missing table has no keys.
func (t *Table) Keys(ctx context.Context) ([]string, error) {
	c, err := t.open(ctx, false)
	if IsNotFound(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	keys := []string{}
	if err := c.db.WithContext(ctx).Table(t.name).Order("id ASC").Pluck("id", &keys).Error; err != nil {
		return nil, t.storeError("keys", err)
	}
	return keys, nil
}

// Put stores value under key, replacing any previous value in full.
func (t *Table) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return t.storeError("encode", fmt.Errorf("key %s: %w", key, err))
	}

	c, err := t.open(ctx, true)
	if err != nil {
		return err
	}

	entry := entities.Entry{ID: key, Value: string(raw)}
	err = c.db.WithContext(ctx).Table(t.name).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry).Error
	if err != nil {
		return t.storeError("put", err)
	}
	return nil
}

// Delete removes key. Deleting from a missing table or a missing key is a no-op.
func (t *Table) Delete(ctx context.Context, key string) error {
	c, err := t.open(ctx, false)
	if IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := c.db.WithContext(ctx).Table(t.name).Where("id = ?", key).Delete(&entities.Entry{}).Error; err != nil {
		return t.storeError("delete", err)
	}
	return nil
}

// open resolves the connection and checks the table. With create set the
// database and table are created when missing.
func (t *Table) open(ctx context.Context, create bool) (*conn, error) {
	if !tablePattern.MatchString(t.name) {
		return nil, fmt.Errorf("%w: table %q", ErrInvalidName, t.name)
	}

	c, err := t.store.handle(ctx, t.database, create)
	if err != nil {
		return nil, err
	}

	if create {
		if err := c.ensureTable(ctx, t.database, t.name); err != nil {
			return nil, err
		}
		return c, nil
	}

	if !c.hasTable(ctx, t.name) {
		return nil, notFound(t.database, t.name, "")
	}
	return c, nil
}

func (t *Table) storeError(op string, err error) error {
	return &StoreError{Op: op, Database: t.database, Table: t.name, Err: err}
}

// Load decodes the document stored under key.
func Load[T any](ctx context.Context, t *Table, key string) (T, error) {
	var value T
	if err := t.Get(ctx, key, &value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// LoadOr is Load with a fallback: a missing database, table or key yields def.
// Storage failures are still returned.
func LoadOr[T any](ctx context.Context, t *Table, key string, def T) (T, error) {
	value, err := Load[T](ctx, t, key)
	if IsNotFound(err) {
		return def, nil
	}
	return value, err
}

// LoadAll decodes every document in the table, ordered by key.
func LoadAll[T any](ctx context.Context, t *Table) ([]T, error) {
	raws, err := t.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	values := make([]T, 0, len(raws))
	for i, raw := range raws {
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, t.storeError("decode", fmt.Errorf("entry %d: %w", i, err))
		}
		values = append(values, value)
	}
	return values, nil
}

// Key converts an identifier of any scalar type into the canonical string
// form used for lookups: 42 and "42" address the same entry, and surrounding
// whitespace is dropped.
func Key(v any) string {
	switch k := v.(type) {
	case string:
		return strings.TrimSpace(k)
	case int:
		return strconv.Itoa(k)
	case int64:
		return strconv.FormatInt(k, 10)
	case uint:
		return strconv.FormatUint(uint64(k), 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	case fmt.Stringer:
		return strings.TrimSpace(k.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
