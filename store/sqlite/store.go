// Package sqlite provides a store.Store backed by an embedded SQLite
// database through grove's sqlite driver (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" migration executor
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/economy/store/sqlstore"
)

// Dialect is the SQLite dialect for sqlstore.
var Dialect = sqlstore.Dialect{
	Name:              "economy/sqlite",
	BindType:          sqlx.QUESTION,
	IsUniqueViolation: isUniqueViolation,
	Migrations:        Migrations,
}

// Open opens (creating if needed) the database at path and returns a store.
// The pool is limited to one connection: SQLite allows a single writer,
// and a shared connection keeps ":memory:" databases alive.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, dsn(path), driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("economy/sqlite: open %s: %w", path, err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("economy/sqlite: open grove: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("economy/sqlite: ping %s: %w", path, err)
	}
	return New(db), nil
}

// New wraps a grove database whose driver speaks SQLite.
func New(db *grove.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect)
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
