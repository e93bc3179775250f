package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/economy/job"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/tax"
	"github.com/xraph/economy/types"
)

var errNotDue = errors.New("economy: adjustment not due")

// ──────────────────────────────────────────────────
// Tax settings
// ──────────────────────────────────────────────────

// EnsureTaxSettings returns the active tax settings, creating the initial
// version if none exists.
func (e *Economy) EnsureTaxSettings(ctx context.Context, now time.Time) (*tax.Settings, error) {
	var active *tax.Settings
	_, err := e.atomically(ctx, []string{taxSettingsKey}, func(ctx context.Context, tx store.Store, _ *effects) error {
		s, err := tx.GetActiveTaxSettings(ctx)
		if err == nil {
			active = s
			return nil
		}
		if !errors.Is(err, ErrNoActiveTaxSettings) {
			return err
		}

		s = tax.Defaults(now)
		s.MonthlyRate = e.initialMonthlyRate
		s.PurchaseRate = e.initialPurchaseRate
		s.NextAdjustmentYear = now.In(e.location).Year() + 1
		if err := tx.CreateTaxSettings(ctx, s); err != nil {
			return err
		}
		active = s
		e.logger.Info("tax settings initialized",
			"monthly_rate", s.MonthlyRate.String(),
			"purchase_rate", s.PurchaseRate.String(),
			"next_adjustment_year", s.NextAdjustmentYear,
		)
		return nil
	})
	return active, err
}

// GetTaxSettings returns the active tax settings.
func (e *Economy) GetTaxSettings(ctx context.Context) (*tax.Settings, error) {
	return e.store.GetActiveTaxSettings(ctx)
}

// GetTaxSettingsAt returns the tax settings version in force at t.
func (e *Economy) GetTaxSettingsAt(ctx context.Context, t time.Time) (*tax.Settings, error) {
	return e.store.GetTaxSettingsAt(ctx, t)
}

// GetRecentAdjustments returns up to limit annual adjustments, most recent
// year first. A non-positive limit returns the last five.
func (e *Economy) GetRecentAdjustments(ctx context.Context, limit int) ([]*tax.Adjustment, error) {
	if limit <= 0 {
		limit = 5
	}
	return e.store.ListAdjustments(ctx, limit)
}

// ──────────────────────────────────────────────────
// Annual rate adjustment
// ──────────────────────────────────────────────────

// RunAnnualAdjustmentJob raises both tax rates by the adjustment step once
// per calendar year, on or after the active settings' next adjustment year.
//
// The adjustment record, the deactivation of the old settings, and the new
// active settings commit together. A run for a year that was already
// adjusted, or before the next adjustment year, reports a no-op.
func (e *Economy) RunAnnualAdjustmentJob(ctx context.Context, now time.Time) (*job.Report, error) {
	report := job.New(job.KindAnnualAdjustment, now)
	year := now.In(e.location).Year()

	var applied *tax.Adjustment
	var next *tax.Settings
	_, err := e.atomically(ctx, []string{taxSettingsKey}, func(ctx context.Context, tx store.Store, _ *effects) error {
		if err := adjustedFor(ctx, tx, year); err != nil {
			return err
		}

		active, err := tx.GetActiveTaxSettings(ctx)
		if errors.Is(err, ErrNoActiveTaxSettings) {
			// Another runner may have swapped the active row while this one
			// waited on its lock; its adjustment is visible by now.
			if err := adjustedFor(ctx, tx, year); err != nil {
				return err
			}
			return ErrNoActiveTaxSettings
		}
		if err != nil {
			return err
		}
		if year < active.NextAdjustmentYear {
			return fmt.Errorf("%w until %d", errNotDue, active.NextAdjustmentYear)
		}

		next, applied = tax.StepUp(active, e.adjustmentStep, year, now)
		if err := tx.CreateAdjustment(ctx, applied); err != nil {
			return err
		}
		if err := tx.DeactivateTaxSettings(ctx, active.ID); err != nil {
			return err
		}
		if err := tx.CreateTaxSettings(ctx, next); err != nil {
			return err
		}
		return e.checkSingleActive(ctx, tx)
	})

	switch {
	case err == nil:
		report.Apply(0)
		report.Reason = fmt.Sprintf("monthly %s%% -> %s%%, purchase %s%% -> %s%%",
			applied.PreviousMonthlyRate, applied.NewMonthlyRate,
			applied.PreviousPurchaseRate, applied.NewPurchaseRate)
	case errors.Is(err, errNotDue), IsNoOp(err):
		report.Skip()
		report.Reason = err.Error()
		err = nil
	default:
		report.Fail(fmt.Sprintf("year %d", year), err)
	}

	if applied != nil && err == nil {
		e.plugins.EmitTaxRatesAdjusted(ctx, applied)
		e.warnOnHighRates(next)
	}
	e.finishJob(ctx, report)
	return report, err
}

// adjustedFor returns ErrAlreadyApplied when the latest adjustment covers
// year or a later one.
func adjustedFor(ctx context.Context, tx store.Store, year int) error {
	latest, err := tx.ListAdjustments(ctx, 1)
	if err != nil {
		return err
	}
	if len(latest) > 0 && latest[0].Year >= year {
		return fmt.Errorf("%w: rates already adjusted for %d", ErrAlreadyApplied, latest[0].Year)
	}
	return nil
}

func (e *Economy) checkSingleActive(ctx context.Context, tx store.Store) error {
	all, err := tx.ListTaxSettings(ctx)
	if err != nil {
		return err
	}
	active := 0
	for _, s := range all {
		if s.IsActive {
			active++
		}
	}
	if active != 1 {
		return errInconsistentf("%d active tax settings", active)
	}
	return nil
}

// warnOnHighRates logs when a rate is at or above the configured threshold.
func (e *Economy) warnOnHighRates(s *tax.Settings) {
	if s == nil || e.rateWarnThreshold.IsZero() {
		return
	}
	if s.MonthlyRate.GreaterThanOrEqual(e.rateWarnThreshold) || s.PurchaseRate.GreaterThanOrEqual(e.rateWarnThreshold) {
		e.logger.Warn("tax rate reached warning threshold",
			"monthly_rate", s.MonthlyRate.String(),
			"purchase_rate", s.PurchaseRate.String(),
			"threshold", e.rateWarnThreshold.String(),
		)
	}
}

// ──────────────────────────────────────────────────
// Fiscal year
// ──────────────────────────────────────────────────

// RunFiscalYearJob seeds the funds for now's fiscal year from the configured
// allocations. Without configured allocations the whole annual allocation
// goes to the reserve fund. It is a no-op when the year is already seeded.
func (e *Economy) RunFiscalYearJob(ctx context.Context, now time.Time) (*job.Report, error) {
	report := job.New(job.KindFiscalYearSeed, now)
	year := types.StartOfYear(now.In(e.location)).Year()

	seeded, err := e.SeedFiscalYear(ctx, year, e.allocations)
	switch {
	case err == nil:
		var total int64
		for _, s := range seeded {
			total += s.Allocated
		}
		report.Apply(total)
	case IsNoOp(err):
		report.Skip()
		report.Reason = err.Error()
		err = nil
	default:
		report.Fail(fmt.Sprintf("fiscal year %d", year), err)
	}

	e.finishJob(ctx, report)
	return report, err
}
