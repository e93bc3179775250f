package economy

import (
	"context"
	"fmt"

	"github.com/xraph/economy/account"
)

// VerifyInvariants audits the whole store: every account balance matches
// its transaction history and is non-negative, every fund is within its
// bounds, exactly one tax settings row is active, and adjustment years are
// unique and increase with application time.
//
// It returns nil when the store is consistent. Otherwise the result is a
// MultiError whose entries all wrap ErrInconsistentState. Storage failures
// are returned as-is.
func (e *Economy) VerifyInvariants(ctx context.Context) error {
	var report MultiError

	var after *account.Cursor
	for {
		page, err := e.store.ListAccounts(ctx, account.ListOpts{Limit: e.pageSize, After: after})
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		for _, a := range page {
			if a.Balance < 0 {
				report.Add(errInconsistentf("account %s has negative balance %d", a.ID, a.Balance))
			}
			sum, err := e.store.SumTransactions(ctx, account.SumQuery{AccountID: a.ID})
			if err != nil {
				return fmt.Errorf("sum transactions for %s: %w", a.ID, err)
			}
			if sum != a.Balance {
				report.Add(errInconsistentf("account %s balance %d != history %d", a.ID, a.Balance, sum))
			}
		}
		if len(page) < e.pageSize {
			break
		}
		after = account.CursorAfter(page[len(page)-1])
	}

	funds, err := e.store.ListFunds(ctx)
	if err != nil {
		return fmt.Errorf("list funds: %w", err)
	}
	for _, f := range funds {
		if err := checkFund(f); err != nil {
			report.Add(err)
		}
	}

	settings, err := e.store.ListTaxSettings(ctx)
	if err != nil {
		return fmt.Errorf("list tax settings: %w", err)
	}
	active := 0
	for _, s := range settings {
		if s.IsActive {
			active++
		}
	}
	if active != 1 {
		report.Add(errInconsistentf("%d active tax settings", active))
	}

	adjustments, err := e.store.ListAdjustments(ctx, 0)
	if err != nil {
		return fmt.Errorf("list adjustments: %w", err)
	}
	// Listed newest year first.
	for i := 1; i < len(adjustments); i++ {
		newer, older := adjustments[i-1], adjustments[i]
		if newer.Year <= older.Year {
			report.Add(errInconsistentf("adjustment year %d repeated or out of order", newer.Year))
		}
		if newer.AppliedAt.Before(older.AppliedAt) {
			report.Add(errInconsistentf("adjustment %d applied before adjustment %d", newer.Year, older.Year))
		}
	}

	if report.HasErrors() {
		e.logger.Error("invariant audit failed", "violations", len(report.Errors))
		return report
	}
	return nil
}
