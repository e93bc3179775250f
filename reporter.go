package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/types"
)

// EconomyStats is the aggregate view fed to dashboards. Distribution and
// reserve totals cover the current fiscal year.
type EconomyStats struct {
	TotalAllocated         int64            `json:"total_allocated"`
	TotalDistributed       int64            `json:"total_distributed"`
	TotalReserve           int64            `json:"total_reserve"`
	DistributionPercentage decimal.Decimal  `json:"distribution_percentage"`
	ActiveDevs             int64            `json:"active_devs"`
	WeeklyDistribution     int64            `json:"weekly_distribution"`
	MonthlyDistribution    int64            `json:"monthly_distribution"`
	WindowDistribution     int64            `json:"window_distribution"`
	Window                 types.WindowKind `json:"window"`
	TotalBurned            int64            `json:"total_burned"`
	TotalTaxCollected      int64            `json:"total_tax_collected"`
	ReserveInflow          int64            `json:"reserve_inflow"`
	GeneratedAt            time.Time        `json:"generated_at"`
}

// TotalAllocated returns the fixed per-year allocation.
func (e *Economy) TotalAllocated() int64 {
	return e.annualAllocation
}

// TotalDistributed sums mint and weekly-bonus amounts inside window. A nil
// window means the current fiscal year.
func (e *Economy) TotalDistributed(ctx context.Context, window *types.Window) (int64, error) {
	w := e.fiscalYearWindow(e.clock.Now())
	if window != nil {
		w = *window
	}
	return e.store.SumTransactions(ctx, account.SumQuery{
		Kinds:  account.DistributionKinds(),
		Window: w,
	})
}

// TotalReserve returns what remains of this fiscal year's allocation once
// distribution is accounted for.
func (e *Economy) TotalReserve(ctx context.Context) (int64, error) {
	distributed, err := e.TotalDistributed(ctx, nil)
	if err != nil {
		return 0, err
	}
	return e.annualAllocation - distributed, nil
}

// FundBreakdown returns the state of every seeded fund in grant, rewards,
// reserve order.
func (e *Economy) FundBreakdown(ctx context.Context) ([]fund.State, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]fund.State, 0, len(snap))
	for _, t := range fund.Types() {
		if s, ok := snap[t]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// GetFundBreakdown is an alias of FundBreakdown.
func (e *Economy) GetFundBreakdown(ctx context.Context) ([]fund.State, error) {
	return e.FundBreakdown(ctx)
}

// ActiveDeveloperCount returns the number of active developer accounts.
func (e *Economy) ActiveDeveloperCount(ctx context.Context) (int64, error) {
	return e.store.CountAccounts(ctx, account.CountOpts{
		Role:   account.RoleDeveloper,
		Status: account.StatusActive,
	})
}

// GetStats computes the dashboard figures as of now. kind selects the
// extra WindowDistribution period; weekly and monthly rollups are always
// included.
func (e *Economy) GetStats(ctx context.Context, kind types.WindowKind, now time.Time) (*EconomyStats, error) {
	if kind == "" {
		kind = types.WindowAll
	}
	if !kind.IsValid() {
		return nil, ValidationError{Field: "window", Message: fmt.Sprintf("unknown window %q", kind)}
	}

	stats := &EconomyStats{
		TotalAllocated: e.annualAllocation,
		Window:         kind,
		GeneratedAt:    now.UTC(),
	}

	var err error
	fiscal := e.fiscalYearWindow(now)
	if stats.TotalDistributed, err = e.sum(ctx, account.DistributionKinds(), fiscal, ""); err != nil {
		return nil, err
	}
	stats.TotalReserve = stats.TotalAllocated - stats.TotalDistributed
	if stats.TotalAllocated > 0 {
		stats.DistributionPercentage = decimal.NewFromInt(stats.TotalDistributed).
			Div(decimal.NewFromInt(stats.TotalAllocated)).
			Shift(2).
			Round(2)
	}

	if stats.WeeklyDistribution, err = e.sum(ctx, account.DistributionKinds(), types.WindowFor(types.WindowWeek, now), ""); err != nil {
		return nil, err
	}
	if stats.MonthlyDistribution, err = e.sum(ctx, account.DistributionKinds(), types.WindowFor(types.WindowMonth, now), ""); err != nil {
		return nil, err
	}
	if stats.WindowDistribution, err = e.sum(ctx, account.DistributionKinds(), types.WindowFor(kind, now), ""); err != nil {
		return nil, err
	}

	// Tax rows are debits, so their sums are negative.
	burned, err := e.sum(ctx, account.TaxKinds(), types.Window{}, account.RefBurn)
	if err != nil {
		return nil, err
	}
	stats.TotalBurned = -burned

	collected, err := e.sum(ctx, account.TaxKinds(), types.Window{}, "")
	if err != nil {
		return nil, err
	}
	stats.TotalTaxCollected = -collected

	if stats.ActiveDevs, err = e.ActiveDeveloperCount(ctx); err != nil {
		return nil, err
	}

	reserve, err := e.store.GetFund(ctx, fund.TypeReserve)
	switch {
	case err == nil:
		stats.ReserveInflow = reserve.Inflow
	case !errors.Is(err, ErrFundNotFound):
		return nil, err
	}

	return stats, nil
}

func (e *Economy) sum(ctx context.Context, kinds []account.Kind, w types.Window, refPrefix string) (int64, error) {
	return e.store.SumTransactions(ctx, account.SumQuery{
		Kinds:           kinds,
		Window:          w,
		ReferencePrefix: refPrefix,
	})
}

func (e *Economy) fiscalYearWindow(now time.Time) types.Window {
	return types.Window{Since: types.StartOfYear(now.In(e.location)), Until: now}
}
