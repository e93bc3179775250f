package sqlite

import (
	"github.com/xraph/grove/migrate"

	"github.com/xraph/economy/store/sqlstore"
)

// Migrations is the grove migration group for the SQLite schema.
// Timestamps are TEXT in a fixed width UTC layout; rates are TEXT decimals.
var Migrations = migrate.NewGroup("economy")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_accounts",
			Version: "20250101000001",
			Up: sqlstore.Statements(
				`CREATE TABLE IF NOT EXISTS accounts (
					id                   TEXT PRIMARY KEY,
					external_id          TEXT UNIQUE,
					role                 TEXT NOT NULL DEFAULT 'developer',
					status               TEXT NOT NULL DEFAULT 'active',
					balance              INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
					last_weekly_bonus_at TEXT,
					tax_exempt_until     TEXT,
					created_at           TEXT NOT NULL,
					updated_at           TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_accounts_role_status ON accounts (role, status)`,
			),
			Down: sqlstore.Statements(`DROP TABLE IF EXISTS accounts`),
		},
		&migrate.Migration{
			Name:    "create_transactions",
			Version: "20250101000002",
			Up: sqlstore.Statements(
				`CREATE TABLE IF NOT EXISTS transactions (
					seq        INTEGER PRIMARY KEY AUTOINCREMENT,
					id         TEXT NOT NULL UNIQUE,
					account_id TEXT NOT NULL REFERENCES accounts (id),
					amount     INTEGER NOT NULL CHECK (amount <> 0),
					kind       TEXT NOT NULL,
					reference  TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions (account_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_kind ON transactions (kind, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_reference ON transactions (kind, reference)`,
			),
			Down: sqlstore.Statements(`DROP TABLE IF EXISTS transactions`),
		},
		&migrate.Migration{
			Name:    "create_economy_funds",
			Version: "20250101000003",
			Up: sqlstore.Statements(
				`CREATE TABLE IF NOT EXISTS economy_funds (
					id               TEXT NOT NULL UNIQUE,
					fund_type        TEXT NOT NULL,
					fiscal_year      INTEGER NOT NULL,
					allocated_amount INTEGER NOT NULL CHECK (allocated_amount >= 0),
					remaining_amount INTEGER NOT NULL CHECK (remaining_amount >= 0),
					inflow_amount    INTEGER NOT NULL DEFAULT 0,
					created_at       TEXT NOT NULL,
					updated_at       TEXT NOT NULL,
					PRIMARY KEY (fund_type, fiscal_year)
				)`,
			),
			Down: sqlstore.Statements(`DROP TABLE IF EXISTS economy_funds`),
		},
		&migrate.Migration{
			Name:    "create_tax_settings",
			Version: "20250101000004",
			Up: sqlstore.Statements(
				`CREATE TABLE IF NOT EXISTS tax_settings (
					id                   TEXT PRIMARY KEY,
					monthly_tax_rate     TEXT NOT NULL,
					purchase_tax_rate    TEXT NOT NULL,
					collection_frequency TEXT NOT NULL DEFAULT 'monthly',
					is_active            INTEGER NOT NULL DEFAULT 0,
					next_adjustment_year INTEGER NOT NULL,
					effective_from       TEXT NOT NULL,
					created_at           TEXT NOT NULL,
					updated_at           TEXT NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_tax_settings_single_active ON tax_settings (is_active) WHERE is_active = 1`,
				`CREATE INDEX IF NOT EXISTS idx_tax_settings_effective ON tax_settings (effective_from)`,
			),
			Down: sqlstore.Statements(`DROP TABLE IF EXISTS tax_settings`),
		},
		&migrate.Migration{
			Name:    "create_tax_rate_adjustments",
			Version: "20250101000005",
			Up: sqlstore.Statements(
				`CREATE TABLE IF NOT EXISTS tax_rate_adjustments (
					id                     TEXT NOT NULL UNIQUE,
					adjustment_year        INTEGER PRIMARY KEY,
					previous_monthly_rate  TEXT NOT NULL,
					new_monthly_rate       TEXT NOT NULL,
					previous_purchase_rate TEXT NOT NULL,
					new_purchase_rate      TEXT NOT NULL,
					amount                 TEXT NOT NULL,
					settings_id            TEXT NOT NULL REFERENCES tax_settings (id),
					applied_at             TEXT NOT NULL
				)`,
			),
			Down: sqlstore.Statements(`DROP TABLE IF EXISTS tax_rate_adjustments`),
		},
		&migrate.Migration{
			Name:    "index_accounts_created",
			Version: "20250101000006",
			Up:      sqlstore.Statements(`CREATE INDEX IF NOT EXISTS idx_accounts_created ON accounts (created_at, id)`),
			Down:    sqlstore.Statements(`DROP INDEX IF EXISTS idx_accounts_created`),
		},
	)
}
