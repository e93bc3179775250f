// Package audithook bridges economy ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/plugin"
	"github.com/xraph/economy/tax"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnAccountOpened        = (*Extension)(nil)
	_ plugin.OnAccountStatusChanged = (*Extension)(nil)
	_ plugin.OnTransactionRecorded  = (*Extension)(nil)
	_ plugin.OnFundDisbursed        = (*Extension)(nil)
	_ plugin.OnFundReplenished      = (*Extension)(nil)
	_ plugin.OnFiscalYearSeeded     = (*Extension)(nil)
	_ plugin.OnTaxApplied           = (*Extension)(nil)
	_ plugin.OnTaxRatesAdjusted     = (*Extension)(nil)
	_ plugin.OnJobCompleted         = (*Extension)(nil)
	_ plugin.OnInvariantViolated    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges economy events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnAccountOpened implements plugin.OnAccountOpened.
func (e *Extension) OnAccountOpened(ctx context.Context, acct *account.Account) error {
	return e.record(ctx, ActionAccountOpened, SeverityInfo, OutcomeSuccess,
		ResourceAccount, acct.ID.String(), CategoryAccount, nil,
		"external_id", acct.ExternalID,
		"role", string(acct.Role),
	)
}

// OnAccountStatusChanged implements plugin.OnAccountStatusChanged.
func (e *Extension) OnAccountStatusChanged(ctx context.Context, acct *account.Account) error {
	action, severity := ActionAccountEnabled, SeverityInfo
	if !acct.IsActive() {
		action, severity = ActionAccountDisabled, SeverityWarning
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceAccount, acct.ID.String(), CategoryAccount, nil,
		"status", string(acct.Status),
		"balance", acct.Balance,
	)
}

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (e *Extension) OnTransactionRecorded(ctx context.Context, tx *account.Transaction) error {
	return e.record(ctx, ActionTransactionRecorded, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, tx.ID.String(), CategoryLedger, nil,
		"account_id", tx.AccountID.String(),
		"kind", string(tx.Kind),
		"amount", tx.Amount,
		"reference", tx.Reference,
	)
}

// ──────────────────────────────────────────────────
// Fund hooks
// ──────────────────────────────────────────────────

// OnFundDisbursed implements plugin.OnFundDisbursed.
func (e *Extension) OnFundDisbursed(ctx context.Context, fundType fund.Type, amount int64) error {
	return e.record(ctx, ActionFundDisbursed, SeverityInfo, OutcomeSuccess,
		ResourceFund, string(fundType), CategoryTreasury, nil,
		"amount", amount,
	)
}

// OnFundReplenished implements plugin.OnFundReplenished.
func (e *Extension) OnFundReplenished(ctx context.Context, fundType fund.Type, amount int64) error {
	return e.record(ctx, ActionFundReplenished, SeverityInfo, OutcomeSuccess,
		ResourceFund, string(fundType), CategoryTreasury, nil,
		"amount", amount,
	)
}

// OnFiscalYearSeeded implements plugin.OnFiscalYearSeeded.
func (e *Extension) OnFiscalYearSeeded(ctx context.Context, year int, funds []fund.State) error {
	var total int64
	for _, f := range funds {
		total += f.Allocated
	}
	return e.record(ctx, ActionFiscalYearSeeded, SeverityInfo, OutcomeSuccess,
		ResourceFund, fmt.Sprint(year), CategoryTreasury, nil,
		"fiscal_year", year,
		"funds", len(funds),
		"allocated", total,
	)
}

// ──────────────────────────────────────────────────
// Tax hooks
// ──────────────────────────────────────────────────

// OnTaxApplied implements plugin.OnTaxApplied.
func (e *Extension) OnTaxApplied(ctx context.Context, result *tax.Result) error {
	action := ActionTaxApplied
	if result.Exempt {
		action = ActionTaxExempted
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceAccount, result.AccountID.String(), CategoryTaxation, nil,
		"event", string(result.Event),
		"base", result.Base,
		"rate", result.Rate.String(),
		"tax", result.TaxAmount,
		"burn", result.Burn,
		"reserve", result.ReserveShare,
	)
}

// OnTaxRatesAdjusted implements plugin.OnTaxRatesAdjusted.
func (e *Extension) OnTaxRatesAdjusted(ctx context.Context, adj *tax.Adjustment) error {
	return e.record(ctx, ActionTaxRatesAdjusted, SeverityInfo, OutcomeSuccess,
		ResourceTaxSettings, adj.SettingsID.String(), CategoryTaxation, nil,
		"year", adj.Year,
		"previous_monthly_rate", adj.PreviousMonthlyRate.String(),
		"new_monthly_rate", adj.NewMonthlyRate.String(),
		"previous_purchase_rate", adj.PreviousPurchaseRate.String(),
		"new_purchase_rate", adj.NewPurchaseRate.String(),
	)
}

// ──────────────────────────────────────────────────
// Job hooks
// ──────────────────────────────────────────────────

// OnJobCompleted implements plugin.OnJobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, report *job.Report) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	switch report.Outcome {
	case job.OutcomePartial:
		severity, outcome = SeverityWarning, OutcomePartial
	case job.OutcomeFailed:
		severity, outcome = SeverityError, OutcomeFailure
	}

	var err error
	if len(report.Failures) > 0 {
		err = fmt.Errorf("%d unit(s) failed, first: %s: %s",
			len(report.Failures), report.Failures[0].Subject, report.Failures[0].Error)
	}

	return e.record(ctx, ActionJobCompleted, severity, outcome,
		ResourceJob, report.RunID.String(), CategoryScheduler, err,
		"kind", string(report.Kind),
		"outcome", string(report.Outcome),
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"points", report.Points,
	)
}

// OnInvariantViolated implements plugin.OnInvariantViolated.
func (e *Extension) OnInvariantViolated(ctx context.Context, violation error) error {
	return e.record(ctx, ActionInvariantViolated, SeverityCritical, OutcomeFailure,
		ResourceLedger, "", CategoryIntegrity, violation,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
