package store

import (
	"context"
	"time"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/tax"
)

// Store is the unified storage interface for all economy entities.
// Instead of embedding per-entity interfaces, we explicitly declare all
// methods to avoid naming conflicts.
//
// Implementations return the economy package's sentinel errors
// (ErrAccountNotFound, ErrAlreadyApplied, ...) so callers can match them
// with errors.Is regardless of backend.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	GetAccountByExternalID(ctx context.Context, externalID string) (*account.Account, error)
	UpdateAccount(ctx context.Context, a *account.Account) error
	ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error)
	CountAccounts(ctx context.Context, opts account.CountOpts) (int64, error)

	// Transaction methods
	AppendTransaction(ctx context.Context, tx *account.Transaction) error
	ListTransactions(ctx context.Context, accountID id.AccountID, q account.TxQuery) ([]*account.Transaction, error)
	SumTransactions(ctx context.Context, q account.SumQuery) (int64, error)
	HasReference(ctx context.Context, kind account.Kind, reference string) (bool, error)

	// Fund methods
	CreateFund(ctx context.Context, f *fund.Fund) error
	GetFund(ctx context.Context, fundType fund.Type) (*fund.Fund, error)
	UpdateFund(ctx context.Context, f *fund.Fund) error
	ListFunds(ctx context.Context) ([]*fund.Fund, error)

	// Tax methods
	CreateTaxSettings(ctx context.Context, s *tax.Settings) error
	GetActiveTaxSettings(ctx context.Context) (*tax.Settings, error)
	GetTaxSettingsAt(ctx context.Context, at time.Time) (*tax.Settings, error)
	DeactivateTaxSettings(ctx context.Context, settingsID id.TaxSettingsID) error
	ListTaxSettings(ctx context.Context) ([]*tax.Settings, error)
	CreateAdjustment(ctx context.Context, adj *tax.Adjustment) error
	GetAdjustment(ctx context.Context, year int) (*tax.Adjustment, error)
	ListAdjustments(ctx context.Context, limit int) ([]*tax.Adjustment, error)

	// RunInTx runs fn in a single atomic unit. fn must use the Store and
	// context it is handed, not the receiver. If fn returns an error every
	// write made through tx is discarded. Calling RunInTx on a Store that
	// is already inside a transaction joins the outer transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
