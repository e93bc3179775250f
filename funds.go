package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/types"
)

// ──────────────────────────────────────────────────
// Fund allocator
// ──────────────────────────────────────────────────

// Disburse takes amount points out of a fund. It fails with
// ErrFundExhausted if amount exceeds what remains.
func (e *Economy) Disburse(ctx context.Context, fundType fund.Type, amount int64) error {
	if err := validFundAmount(fundType, amount); err != nil {
		return err
	}

	fx, err := e.atomically(ctx, []string{fundKey(fundType)}, func(ctx context.Context, tx store.Store, fx *effects) error {
		return e.disburse(ctx, tx, fundType, amount, fx)
	})
	if err != nil {
		return err
	}

	e.emit(ctx, fx)
	return nil
}

// Replenish adds amount points back to a fund and returns how many were
// applied. Grant and rewards funds never grow past their allocation; the
// overflow is dropped and logged. The reserve fund has no ceiling.
func (e *Economy) Replenish(ctx context.Context, fundType fund.Type, amount int64) (int64, error) {
	if err := validFundAmount(fundType, amount); err != nil {
		return 0, err
	}

	var applied int64
	fx, err := e.atomically(ctx, []string{fundKey(fundType)}, func(ctx context.Context, tx store.Store, fx *effects) error {
		var err error
		applied, err = e.replenish(ctx, tx, fundType, amount, fx)
		return err
	})
	if err != nil {
		return 0, err
	}

	e.emit(ctx, fx)
	return applied, nil
}

// Snapshot returns the state of every seeded fund keyed by type.
func (e *Economy) Snapshot(ctx context.Context) (map[fund.Type]fund.State, error) {
	funds, err := e.store.ListFunds(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[fund.Type]fund.State, len(funds))
	for _, f := range funds {
		out[f.Type] = f.State()
	}
	return out, nil
}

// SeedFiscalYear (re)initializes every fund for year with the given absolute
// allocations. Allocations must be non-negative and sum to no more than the
// annual allocation; whatever they leave unallocated is added to the reserve
// fund, so the three funds always start the year holding the full annual
// allocation. Seeding a year that is already seeded returns
// ErrAlreadyApplied.
func (e *Economy) SeedFiscalYear(ctx context.Context, year int, allocations map[fund.Type]int64) ([]fund.State, error) {
	var total int64
	for t, amount := range allocations {
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFundType, t)
		}
		if amount < 0 {
			return nil, ValidationError{Field: string(t), Message: "allocation must not be negative"}
		}
		total += amount
	}
	if total > e.annualAllocation {
		return nil, fmt.Errorf("%w: %d > %d", ErrOverAllocated, total, e.annualAllocation)
	}

	unallocated := e.annualAllocation - total

	keys := make([]string, 0, len(fund.Types()))
	for _, t := range fund.Types() {
		keys = append(keys, fundKey(t))
	}

	now := e.clock.Now()
	var seeded []fund.State
	_, err := e.atomically(ctx, keys, func(ctx context.Context, tx store.Store, _ *effects) error {
		seeded = seeded[:0]
		for _, t := range fund.Types() {
			existing, err := tx.GetFund(ctx, t)
			switch {
			case err == nil && existing.FiscalYear >= year:
				return fmt.Errorf("%w: fiscal year %d already seeded", ErrAlreadyApplied, year)
			case err != nil && !errors.Is(err, ErrFundNotFound):
				return err
			}

			amount := allocations[t]
			if t == fund.TypeReserve {
				amount += unallocated
			}
			f := &fund.Fund{
				Entity:     types.NewEntityAt(now),
				ID:         id.NewFundID(),
				Type:       t,
				FiscalYear: year,
				Allocated:  amount,
				Remaining:  amount,
			}
			if err := tx.CreateFund(ctx, f); err != nil {
				return err
			}
			seeded = append(seeded, f.State())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitFiscalYearSeeded(ctx, year, seeded)
	e.logger.Info("fiscal year seeded",
		"year", year,
		"allocated", e.annualAllocation,
		"unallocated_to_reserve", unallocated,
	)
	return seeded, nil
}

// Grant pays amount points out of a fund into an account as a mint. A
// non-empty reference makes the grant idempotent: a second grant with the
// same reference returns ErrAlreadyApplied.
func (e *Economy) Grant(ctx context.Context, fundType fund.Type, accountID id.AccountID, amount int64, reference string) (*account.Transaction, error) {
	if err := validFundAmount(fundType, amount); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	fx, err := e.atomically(ctx, []string{accountKey(accountID), fundKey(fundType)}, func(ctx context.Context, tx store.Store, fx *effects) error {
		if reference != "" {
			seen, err := tx.HasReference(ctx, account.KindMint, reference)
			if err != nil {
				return err
			}
			if seen {
				return fmt.Errorf("%w: grant %q", ErrAlreadyApplied, reference)
			}
		}

		a, err := e.loadActive(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := e.disburse(ctx, tx, fundType, amount, fx); err != nil {
			return err
		}
		if _, err := e.post(ctx, tx, a, amount, account.KindMint, reference, now, fx); err != nil {
			return err
		}
		return e.checkAccount(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, fx)
	return fx.txs[0], nil
}

func validFundAmount(fundType fund.Type, amount int64) error {
	if !fundType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFundType, fundType)
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e *Economy) disburse(ctx context.Context, tx store.Store, fundType fund.Type, amount int64, fx *effects) error {
	f, err := tx.GetFund(ctx, fundType)
	if err != nil {
		return err
	}
	if amount > f.Remaining {
		return fmt.Errorf("%w: %s has %d remaining, requested %d", ErrFundExhausted, fundType, f.Remaining, amount)
	}

	f.Remaining -= amount
	f.TouchAt(e.clock.Now())
	if err := checkFund(f); err != nil {
		return err
	}
	if err := tx.UpdateFund(ctx, f); err != nil {
		return err
	}

	fx.disbursed = append(fx.disbursed, fundDelta{fundType: fundType, amount: amount})
	return nil
}

func (e *Economy) replenish(ctx context.Context, tx store.Store, fundType fund.Type, amount int64, fx *effects) (int64, error) {
	f, err := tx.GetFund(ctx, fundType)
	if err != nil {
		return 0, err
	}

	applied := amount
	if headroom, bounded := f.Headroom(); bounded && applied > headroom {
		e.logger.Warn("fund replenish capped at allocation",
			"fund", fundType,
			"requested", amount,
			"applied", headroom,
		)
		applied = headroom
	}
	if applied == 0 {
		return 0, nil
	}

	f.Remaining += applied
	if f.Unbounded() {
		f.Inflow += applied
	}
	f.TouchAt(e.clock.Now())
	if err := checkFund(f); err != nil {
		return 0, err
	}
	if err := tx.UpdateFund(ctx, f); err != nil {
		return 0, err
	}

	fx.replenished = append(fx.replenished, fundDelta{fundType: fundType, amount: applied})
	return applied, nil
}

func checkFund(f *fund.Fund) error {
	if err := f.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}
	return nil
}
