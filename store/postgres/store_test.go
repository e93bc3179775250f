package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/store/storetest"
	"github.com/xraph/economy/types"
)

var accountCols = []string{"id", "external_id", "role", "status", "balance", "last_weekly_bonus_at", "tax_exempt_until", "created_at", "updated_at"}

func newMockStore(t *testing.T) (store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations: %v", err)
		}
		db.Close()
	})
	gdb, err := grove.Open(&sqlDriver{db: db})
	require.NoError(t, err)
	return New(gdb), mock
}

// sqlDriver serves grove's driver contract from a *sql.DB so sqlmock can
// stand in for PostgreSQL. It reports the "pg" name to pick up the
// PostgreSQL migration executor.
type sqlDriver struct {
	db *sql.DB
}

var _ driver.Driver = (*sqlDriver)(nil)

func (d *sqlDriver) Name() string                                         { return "pg" }
func (d *sqlDriver) Open(context.Context, string, ...driver.Option) error { return nil }
func (d *sqlDriver) Close() error                                         { return d.db.Close() }
func (d *sqlDriver) Dialect() driver.Dialect                              { return nil }
func (d *sqlDriver) Ping(ctx context.Context) error                       { return d.db.PingContext(ctx) }
func (d *sqlDriver) SupportsReturning() bool                              { return true }
func (d *sqlDriver) QueryRow(ctx context.Context, q string, args ...any) driver.Row {
	return d.db.QueryRowContext(ctx, q, args...)
}

func (d *sqlDriver) Exec(ctx context.Context, q string, args ...any) (driver.Result, error) {
	return d.db.ExecContext(ctx, q, args...)
}

func (d *sqlDriver) Query(ctx context.Context, q string, args ...any) (driver.Rows, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *sqlDriver) BeginTx(ctx context.Context, _ *driver.TxOptions) (driver.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx}, nil
}

type sqlTx struct {
	*sql.Tx
}

func (t sqlTx) Exec(ctx context.Context, q string, args ...any) (driver.Result, error) {
	return t.ExecContext(ctx, q, args...)
}

func (t sqlTx) Query(ctx context.Context, q string, args ...any) (driver.Rows, error) {
	rows, err := t.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t sqlTx) QueryRow(ctx context.Context, q string, args ...any) driver.Row {
	return t.QueryRowContext(ctx, q, args...)
}

func TestCreateAccountDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, Message: "duplicate key value"})

	err := s.CreateAccount(context.Background(), &account.Account{
		Entity: types.NewEntity(),
		ID:     id.NewAccountID(),
		Role:   account.RoleDeveloper,
		Status: account.StatusActive,
	})
	assert.ErrorIs(t, err, economy.ErrAccountExists)
}

func TestGetAccountNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(accountCols))

	_, err := s.GetAccount(context.Background(), id.NewAccountID())
	assert.ErrorIs(t, err, economy.ErrAccountNotFound)
}

func TestListAccountsResumesAfterCursor(t *testing.T) {
	s, mock := newMockStore(t)
	after := &account.Cursor{CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), ID: id.NewAccountID()}

	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM accounts WHERE status = $1 AND (created_at > $2 OR (created_at = $3 AND id > $4)) ORDER BY created_at ASC, id ASC LIMIT $5`)).
		WithArgs("active", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 2).
		WillReturnRows(sqlmock.NewRows(accountCols))

	page, err := s.ListAccounts(context.Background(), account.ListOpts{Status: account.StatusActive, Limit: 2, After: after})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestRunInTxLocksAndCommits(t *testing.T) {
	s, mock := newMockStore(t)
	accountID := id.NewAccountID()
	created := "2025-03-10T09:00:00.000000000Z"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1 FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(accountID.String(), nil, "developer", "active", int64(10), nil, nil, created, created))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx store.Store) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(10), a.Balance)
		assert.True(t, a.CreatedAt.Equal(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)))
		a.Balance = 20
		return tx.UpdateAccount(ctx, a)
	})
	require.NoError(t, err)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tax_settings SET is_active = $1, updated_at = $2 WHERE id = $3`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx store.Store) error {
		if err := tx.DeactivateTaxSettings(ctx, id.NewTaxSettingsID()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestUpdateMissingFund(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE economy_funds SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateFund(context.Background(), &fundFixture)
	assert.ErrorIs(t, err, economy.ErrFundNotFound)
}

func TestSumTransactionsBuildsFilter(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE kind IN ($1, $2) AND reference LIKE $3 ESCAPE '\'`)).
		WithArgs("tax-earnings", "tax-purchase", "burn:%").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(-25)))

	sum, err := s.SumTransactions(context.Background(), account.SumQuery{
		Kinds:           account.TaxKinds(),
		ReferencePrefix: account.RefBurn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-25), sum)
}

func TestMigrateSkipsApplied(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS grove_migrations`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS grove_migration_locks`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT pg_try_advisory_lock(1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO grove_migration_locks`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied := sqlmock.NewRows([]string{"id", "version", "name", "group", "migrated_at"})
	for i, m := range Migrations.Migrations() {
		applied.AddRow(int64(i+1), m.Version, m.Name, Migrations.Name(), "2025-01-01 00:00:00+00")
	}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM grove_migrations ORDER BY id ASC`)).WillReturnRows(applied)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE grove_migration_locks SET locked_at = NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_unlock(1)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
}

func TestMigrateReportsLockContention(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS grove_migrations`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS grove_migration_locks`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT pg_try_advisory_lock(1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	assert.ErrorIs(t, s.Migrate(context.Background()), economy.ErrMigrationFailed)
}

// TestStoreContract runs against a real database when
// ECONOMY_TEST_POSTGRES_DSN points at an empty, disposable one.
func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("ECONOMY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ECONOMY_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Open(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		_, err = pgdriver.Unwrap(s.DB()).Exec(ctx, `DROP TABLE IF EXISTS tax_rate_adjustments, tax_settings, economy_funds, transactions, accounts, grove_migrations, grove_migration_locks`)
		require.NoError(t, err)
		require.NoError(t, s.Migrate(ctx))
		return s
	})
}

var fundFixture = fund.Fund{
	Entity:     types.NewEntity(),
	ID:         id.NewFundID(),
	Type:       fund.TypeGrant,
	FiscalYear: 2025,
}
