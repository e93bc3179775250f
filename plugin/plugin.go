// Package plugin provides an extensible plugin system for the economy engine.
// Plugins can hook into lifecycle and ledger events to extend functionality.
// Events are emitted after the unit of work that caused them has committed.
package plugin

import (
	"context"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/tax"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnAccountOpened is called when a new account is created.
type OnAccountOpened interface {
	Plugin
	OnAccountOpened(ctx context.Context, acct *account.Account) error
}

// OnAccountStatusChanged is called when an account is disabled or re-enabled.
type OnAccountStatusChanged interface {
	Plugin
	OnAccountStatusChanged(ctx context.Context, acct *account.Account) error
}

// OnTransactionRecorded is called for every committed ledger transaction.
type OnTransactionRecorded interface {
	Plugin
	OnTransactionRecorded(ctx context.Context, tx *account.Transaction) error
}

// ──────────────────────────────────────────────────
// Fund hooks
// ──────────────────────────────────────────────────

// OnFundDisbursed is called when points leave a fund.
type OnFundDisbursed interface {
	Plugin
	OnFundDisbursed(ctx context.Context, fundType fund.Type, amount int64) error
}

// OnFundReplenished is called when points are added back to a fund.
type OnFundReplenished interface {
	Plugin
	OnFundReplenished(ctx context.Context, fundType fund.Type, amount int64) error
}

// OnFiscalYearSeeded is called when funds are seeded for a new fiscal year.
type OnFiscalYearSeeded interface {
	Plugin
	OnFiscalYearSeeded(ctx context.Context, year int, funds []fund.State) error
}

// ──────────────────────────────────────────────────
// Tax hooks
// ──────────────────────────────────────────────────

// OnTaxApplied is called after an earnings or purchase tax event, including
// exempt events that levied nothing.
type OnTaxApplied interface {
	Plugin
	OnTaxApplied(ctx context.Context, result *tax.Result) error
}

// OnTaxRatesAdjusted is called after the annual rate step-up.
type OnTaxRatesAdjusted interface {
	Plugin
	OnTaxRatesAdjusted(ctx context.Context, adj *tax.Adjustment) error
}

// ──────────────────────────────────────────────────
// Job hooks
// ──────────────────────────────────────────────────

// OnJobCompleted is called when a scheduled job run finishes.
type OnJobCompleted interface {
	Plugin
	OnJobCompleted(ctx context.Context, report *job.Report) error
}

// OnInvariantViolated is called when a post-write check fails. The offending
// unit of work has already been rolled back.
type OnInvariantViolated interface {
	Plugin
	OnInvariantViolated(ctx context.Context, err error) error
}
