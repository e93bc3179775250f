// Package observability provides a metrics extension for the economy engine
// that records ledger event counts via a MetricFactory.
package observability

import (
	"context"
	"strings"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/plugin"
	"github.com/xraph/economy/tax"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnAccountOpened        = (*MetricsExtension)(nil)
	_ plugin.OnAccountStatusChanged = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRecorded  = (*MetricsExtension)(nil)
	_ plugin.OnFundDisbursed        = (*MetricsExtension)(nil)
	_ plugin.OnFundReplenished      = (*MetricsExtension)(nil)
	_ plugin.OnFiscalYearSeeded     = (*MetricsExtension)(nil)
	_ plugin.OnTaxApplied           = (*MetricsExtension)(nil)
	_ plugin.OnTaxRatesAdjusted     = (*MetricsExtension)(nil)
	_ plugin.OnJobCompleted         = (*MetricsExtension)(nil)
	_ plugin.OnInvariantViolated    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide economy metrics.
// Register it as a plugin to track ledger activity.
type MetricsExtension struct {
	factory MetricFactory

	// Account metrics
	AccountsOpened       Counter
	AccountStatusChanges Counter

	// Ledger metrics, one counter pair per transaction kind
	Transactions map[account.Kind]Counter
	Points       map[account.Kind]Counter

	// Fund metrics
	FundDisbursed     map[fund.Type]Counter
	FundReplenished   map[fund.Type]Counter
	FiscalYearsSeeded Counter

	// Tax metrics
	TaxEvents       Counter
	TaxExemptEvents Counter
	TaxBurned       Counter
	TaxToReserve    Counter
	TaxAmount       Histogram
	RateAdjustments Counter

	// Job metrics
	JobRuns     map[job.Kind]Counter
	JobFailures map[job.Kind]Counter
	JobDuration Histogram

	// Error metrics
	InvariantViolations Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	m := &MetricsExtension{
		factory: factory,

		AccountsOpened:       factory.Counter("economy.account.opened"),
		AccountStatusChanges: factory.Counter("economy.account.status_changed"),

		Transactions: make(map[account.Kind]Counter),
		Points:       make(map[account.Kind]Counter),

		FundDisbursed:     make(map[fund.Type]Counter),
		FundReplenished:   make(map[fund.Type]Counter),
		FiscalYearsSeeded: factory.Counter("economy.fund.fiscal_year_seeded"),

		TaxEvents:       factory.Counter("economy.tax.events"),
		TaxExemptEvents: factory.Counter("economy.tax.exempt"),
		TaxBurned:       factory.Counter("economy.tax.burned_points"),
		TaxToReserve:    factory.Counter("economy.tax.reserve_points"),
		TaxAmount:       factory.Histogram("economy.tax.amount"),
		RateAdjustments: factory.Counter("economy.tax.rate_adjustments"),

		JobRuns:     make(map[job.Kind]Counter),
		JobFailures: make(map[job.Kind]Counter),
		JobDuration: factory.Histogram("economy.job.duration_seconds"),

		InvariantViolations: factory.Counter("economy.invariant.violations"),
	}

	for _, k := range account.Kinds() {
		name := metricSegment(string(k))
		m.Transactions[k] = factory.Counter("economy.transactions." + name)
		m.Points[k] = factory.Counter("economy.points." + name)
	}
	for _, t := range fund.Types() {
		m.FundDisbursed[t] = factory.Counter("economy.fund." + string(t) + ".disbursed_points")
		m.FundReplenished[t] = factory.Counter("economy.fund." + string(t) + ".replenished_points")
	}
	for _, k := range []job.Kind{job.KindWeeklyBonus, job.KindAnnualAdjustment, job.KindFiscalYearSeed} {
		name := metricSegment(string(k))
		m.JobRuns[k] = factory.Counter("economy.job." + name + ".runs")
		m.JobFailures[k] = factory.Counter("economy.job." + name + ".failures")
	}
	return m
}

func metricSegment(s string) string {
	return strings.ReplaceAll(s, "-", "_")
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnAccountOpened implements plugin.OnAccountOpened.
func (m *MetricsExtension) OnAccountOpened(_ context.Context, _ *account.Account) error {
	m.AccountsOpened.Inc()
	return nil
}

// OnAccountStatusChanged implements plugin.OnAccountStatusChanged.
func (m *MetricsExtension) OnAccountStatusChanged(_ context.Context, _ *account.Account) error {
	m.AccountStatusChanges.Inc()
	return nil
}

// OnTransactionRecorded implements plugin.OnTransactionRecorded. Points are
// counted by magnitude so debits and credits both increase the counter.
func (m *MetricsExtension) OnTransactionRecorded(_ context.Context, tx *account.Transaction) error {
	if c, ok := m.Transactions[tx.Kind]; ok {
		c.Inc()
	}
	if c, ok := m.Points[tx.Kind]; ok {
		amt := tx.Amount
		if amt < 0 {
			amt = -amt
		}
		c.Add(float64(amt))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Fund hooks
// ──────────────────────────────────────────────────

// OnFundDisbursed implements plugin.OnFundDisbursed.
func (m *MetricsExtension) OnFundDisbursed(_ context.Context, fundType fund.Type, amount int64) error {
	if c, ok := m.FundDisbursed[fundType]; ok {
		c.Add(float64(amount))
	}
	return nil
}

// OnFundReplenished implements plugin.OnFundReplenished.
func (m *MetricsExtension) OnFundReplenished(_ context.Context, fundType fund.Type, amount int64) error {
	if c, ok := m.FundReplenished[fundType]; ok {
		c.Add(float64(amount))
	}
	return nil
}

// OnFiscalYearSeeded implements plugin.OnFiscalYearSeeded.
func (m *MetricsExtension) OnFiscalYearSeeded(_ context.Context, _ int, _ []fund.State) error {
	m.FiscalYearsSeeded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Tax hooks
// ──────────────────────────────────────────────────

// OnTaxApplied implements plugin.OnTaxApplied.
func (m *MetricsExtension) OnTaxApplied(_ context.Context, result *tax.Result) error {
	m.TaxEvents.Inc()
	if result.Exempt {
		m.TaxExemptEvents.Inc()
		return nil
	}
	m.TaxBurned.Add(float64(result.Burn))
	m.TaxToReserve.Add(float64(result.ReserveShare))
	m.TaxAmount.Observe(float64(result.TaxAmount))
	return nil
}

// OnTaxRatesAdjusted implements plugin.OnTaxRatesAdjusted.
func (m *MetricsExtension) OnTaxRatesAdjusted(_ context.Context, _ *tax.Adjustment) error {
	m.RateAdjustments.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Job hooks
// ──────────────────────────────────────────────────

// OnJobCompleted implements plugin.OnJobCompleted.
func (m *MetricsExtension) OnJobCompleted(_ context.Context, report *job.Report) error {
	if c, ok := m.JobRuns[report.Kind]; ok {
		c.Inc()
	}
	if report.Failed > 0 {
		if c, ok := m.JobFailures[report.Kind]; ok {
			c.Add(float64(report.Failed))
		}
	}
	m.JobDuration.Observe(report.Duration().Seconds())
	return nil
}

// OnInvariantViolated implements plugin.OnInvariantViolated.
func (m *MetricsExtension) OnInvariantViolated(_ context.Context, _ error) error {
	m.InvariantViolations.Inc()
	return nil
}
