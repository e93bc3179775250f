// Package sqlstore implements store.Store for the SQL backends on top of a
// grove database handle. Queries are written with ? placeholders and
// rebound for the driver; a Dialect supplies what differs between engines.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/jmoiron/sqlx"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/economy"
	"github.com/xraph/economy/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Dialect describes an SQL engine.
type Dialect struct {
	// Name prefixes error messages, e.g. "economy/postgres".
	Name string
	// BindType is the sqlx bind type for the driver's placeholders.
	BindType int
	// LockSuffix is appended to row reads made inside a transaction
	// (" FOR UPDATE" on Postgres, empty on SQLite).
	LockSuffix string
	// IsUniqueViolation reports whether err is a unique or primary key
	// constraint failure.
	IsUniqueViolation func(err error) bool
	// IsNoRows reports driver specific empty results. sql.ErrNoRows is
	// always recognized.
	IsNoRows   func(err error) bool
	Migrations *migrate.Group
}

// conn is what a grove driver and a driver transaction have in common.
type conn interface {
	Exec(ctx context.Context, query string, args ...any) (driver.Result, error)
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
}

// Store is a store.Store over a grove SQL driver, or over one of its
// transactions inside RunInTx.
type Store struct {
	db      *grove.DB
	drv     driver.Driver
	conn    conn
	tx      driver.Tx
	dialect Dialect
}

// New wraps db. The grove driver behind db must execute SQL.
func New(db *grove.DB, dialect Dialect) *Store {
	drv, ok := db.Driver().(driver.Driver)
	if !ok {
		panic(fmt.Sprintf("%s: grove driver %q does not execute SQL", dialect.Name, db.Driver().Name()))
	}
	return &Store{db: db, drv: drv, conn: drv, dialect: dialect}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate applies the dialect's migration group through the grove
// orchestrator. Applied versions are tracked in grove_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.drv)
	if err != nil {
		return fmt.Errorf("%w: %s: create migration executor: %v", economy.ErrMigrationFailed, s.dialect.Name, err)
	}
	orch := migrate.NewOrchestrator(executor, s.dialect.Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", economy.ErrMigrationFailed, s.dialect.Name, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInTx runs fn inside a database transaction. A nested call joins the
// outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) (err error) {
	if s.tx != nil {
		return fn(ctx, s)
	}

	tx, err := s.drv.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", economy.ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback() //nolint:errcheck // re-panicking
			panic(p)
		}
	}()

	child := &Store{db: s.db, drv: s.drv, conn: tx, tx: tx, dialect: s.dialect}
	if err := fn(ctx, child); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("%s: rollback: %w", s.dialect.Name, rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", economy.ErrTransactionFailed, err)
	}
	return nil
}

// lock returns the row-lock suffix when running inside a transaction.
func (s *Store) lock() string {
	if s.tx == nil {
		return ""
	}
	return s.dialect.LockSuffix
}

func (s *Store) rebind(query string) string {
	return sqlx.Rebind(s.dialect.BindType, query)
}

// row is a scan target that lists its column pointers in select order.
type row interface {
	fields() []any
}

func targets(dest any) []any {
	if r, ok := dest.(row); ok {
		return r.fields()
	}
	return []any{dest}
}

// get scans a single row into dest, a row type or a scalar pointer.
func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	return s.conn.QueryRow(ctx, s.rebind(query), args...).Scan(targets(dest)...)
}

// selectAll appends every result row to the slice dest points at.
func (s *Store) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	slice := reflect.ValueOf(dest).Elem()
	if slice.Kind() != reflect.Slice {
		return fmt.Errorf("%s: selectAll wants a slice pointer, got %T", s.dialect.Name, dest)
	}

	rows, err := s.conn.Query(ctx, s.rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	for rows.Next() {
		elem := reflect.New(slice.Type().Elem())
		if err := rows.Scan(targets(elem.Interface())...); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return rows.Err()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	return s.conn.Exec(ctx, s.rebind(query), args...)
}

// execOne runs a write that must touch exactly one row, returning notFound
// otherwise.
func (s *Store) execOne(ctx context.Context, notFound error, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (s *Store) unique(err error) bool {
	return err != nil && s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err)
}

func (s *Store) isNoRows(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	return s.dialect.IsNoRows != nil && s.dialect.IsNoRows(err)
}
