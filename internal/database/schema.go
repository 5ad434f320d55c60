package database

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/mrlokans/foxtales/internal/entities"
)

// Schema describes the expected version of a named database. When the
// version recorded on disk is lower, Upgrade runs once inside a transaction
// before the database is used.
type Schema struct {
	Version int
	Upgrade UpgradeFunc
}

// UpgradeFunc creates the tables a database needs when moving from
// oldVersion to newVersion.
type UpgradeFunc func(u *Upgrade, oldVersion, newVersion int) error

// Upgrade is the handle passed to an UpgradeFunc.
type Upgrade struct {
	tx      *gorm.DB
	created []string
}

// CreateTable creates an empty key/value table. Creating an existing table is a no-op.
func (u *Upgrade) CreateTable(name string) error {
	if !tablePattern.MatchString(name) {
		return fmt.Errorf("%w: table %q", ErrInvalidName, name)
	}
	if err := u.tx.Table(name).AutoMigrate(&entities.Entry{}); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	u.created = append(u.created, name)
	return nil
}

func (c *conn) migrate(ctx context.Context, name string, schema Schema) error {
	var current int
	if err := c.db.WithContext(ctx).Raw("PRAGMA user_version").Scan(&current).Error; err != nil {
		return &StoreError{Op: "version", Database: name, Err: err}
	}

	if current == schema.Version {
		return nil
	}
	if current > schema.Version {
		return fmt.Errorf("%w: %s is at version %d, requested %d", ErrVersionDowngrade, name, current, schema.Version)
	}

	u := &Upgrade{}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u.tx = tx
		if schema.Upgrade != nil {
			if err := schema.Upgrade(u, current, schema.Version); err != nil {
				return err
			}
		}
		// PRAGMA does not accept bound parameters
		return tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schema.Version)).Error
	})
	if err != nil {
		return &StoreError{Op: "upgrade", Database: name, Err: err}
	}

	for _, table := range u.created {
		c.tables[table] = true
	}
	log.Printf("Upgraded database %s from version %d to %d", name, current, schema.Version)
	return nil
}
