// Package mock provides in-memory stand-ins for external infrastructure
// used by the BDD integration tests.
package mock

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbOnce sync.Once
var db *Db

// Db wraps a shared in-memory sqlite database migrated with the given
// gorm models. The same connection is reused across scenarios; Reset
// wipes the rows between them.
type Db struct {
	Conn   *gorm.DB
	models []any
}

// NewDb opens (once) the shared in-memory database and migrates the models.
func NewDb(models ...any) *Db {
	dbOnce.Do(func() {
		db = open(models)
	})
	return db
}

func open(models []any) *Db {
	dbSQL, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		panic(err)
	}

	// A single connection keeps the shared in-memory database alive and
	// serializes access for deterministic tests.
	dbSQL.SetMaxOpenConns(1)

	conn, err := gorm.Open(sqlite.Dialector{Conn: dbSQL}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}

	if err := conn.AutoMigrate(models...); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}

	return &Db{Conn: conn, models: models}
}

// Reset deletes every row of every migrated model.
func (d *Db) Reset() error {
	for _, model := range d.models {
		err := d.Conn.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error
		if err != nil {
			return fmt.Errorf("failed to reset table for model %T: %w", model, err)
		}
	}
	return nil
}
