package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/types"
)

// ──────────────────────────────────────────────────
// Weekly bonus
// ──────────────────────────────────────────────────

// RunWeeklyBonusJob credits the weekly bonus to every active account whose
// last bonus is at least a week old, and marks the credited points tax
// exempt until the first day of the next month.
//
// Each account is its own unit of work, so one failure does not block the
// others and re-running the job inside the same week is a no-op. The
// returned error is only set when accounts could not be listed; the report
// still covers the accounts processed before that.
func (e *Economy) RunWeeklyBonusJob(ctx context.Context, now time.Time) (*job.Report, error) {
	report := job.New(job.KindWeeklyBonus, now)

	var listErr error
	var after *account.Cursor
	for {
		if err := ctx.Err(); err != nil {
			listErr = err
			break
		}

		page, err := e.store.ListAccounts(ctx, account.ListOpts{
			Status: account.StatusActive,
			Limit:  e.pageSize,
			After:  after,
		})
		if err != nil {
			listErr = fmt.Errorf("list accounts: %w", err)
			break
		}

		for _, a := range page {
			e.bonusOne(ctx, a.ID, now, report)
		}
		if len(page) < e.pageSize {
			break
		}
		after = account.CursorAfter(page[len(page)-1])
	}

	if listErr != nil {
		report.Reason = listErr.Error()
	}
	e.finishJob(ctx, report)
	return report, listErr
}

func (e *Economy) bonusOne(ctx context.Context, accountID id.AccountID, now time.Time, report *job.Report) {
	err := e.grantWeeklyBonus(ctx, accountID, now)
	switch {
	case err == nil:
		report.Apply(e.bonusAmount)
	case IsNoOp(err), errors.Is(err, ErrAccountDisabled):
		report.Skip()
	default:
		report.Fail(accountID.String(), err)
		e.logger.Error("weekly bonus failed",
			"account_id", accountID.String(),
			"error", err,
		)
	}
}

func (e *Economy) grantWeeklyBonus(ctx context.Context, accountID id.AccountID, now time.Time) error {
	keys := []string{accountKey(accountID)}
	if e.bonusFund != "" {
		keys = append(keys, fundKey(e.bonusFund))
	}

	fx, err := e.atomically(ctx, keys, func(ctx context.Context, tx store.Store, fx *effects) error {
		a, err := e.loadActive(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if !a.BonusDue(now, e.bonusInterval) {
			return ErrAlreadyApplied
		}

		if e.bonusFund != "" {
			if err := e.disburse(ctx, tx, e.bonusFund, e.bonusAmount, fx); err != nil {
				return err
			}
		}

		stamp := now.UTC()
		exemptUntil := types.FirstDayOfNextMonth(now.In(e.location)).UTC()
		a.LastWeeklyBonusAt = &stamp
		a.TaxExemptUntil = &exemptUntil

		if _, err := e.post(ctx, tx, a, e.bonusAmount, account.KindWeeklyBonus, "", now, fx); err != nil {
			return err
		}
		return e.checkAccount(ctx, tx, a)
	})
	if err != nil {
		return err
	}

	e.emit(ctx, fx)
	return nil
}

func (e *Economy) finishJob(ctx context.Context, report *job.Report) {
	report.Finish()
	e.plugins.EmitJobCompleted(ctx, report)

	e.logger.Info("job finished",
		"job", report.Kind,
		"run_id", report.RunID.String(),
		"outcome", report.Outcome,
		"processed", report.Processed,
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"elapsed_ms", report.Duration().Milliseconds(),
	)
}
