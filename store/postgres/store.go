// Package postgres provides a store.Store backed by PostgreSQL through
// grove and its pgx driver. Account and fund reads inside a transaction
// take row locks, so several processes can share one database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor

	"github.com/xraph/economy/store/sqlstore"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Dialect is the PostgreSQL dialect for sqlstore.
var Dialect = sqlstore.Dialect{
	Name:              "economy/postgres",
	BindType:          sqlx.DOLLAR,
	LockSuffix:        " FOR UPDATE",
	IsUniqueViolation: isUniqueViolation,
	IsNoRows:          func(err error) bool { return errors.Is(err, pgx.ErrNoRows) },
	Migrations:        Migrations,
}

// Open connects to the database at dsn and returns a store.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	pg := pgdriver.New()
	if err := pg.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("economy/postgres: connect: %w", err)
	}
	db, err := grove.Open(pg)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("economy/postgres: open grove: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("economy/postgres: ping: %w", err)
	}
	return New(db), nil
}

// New wraps a grove database whose driver speaks PostgreSQL.
func New(db *grove.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
