// Package storetest is a contract suite that every store.Store backend
// runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/tax"
	"github.com/xraph/economy/types"
)

// Factory returns an empty, migrated store. The suite closes nothing; use
// t.Cleanup in the factory.
type Factory func(t *testing.T) store.Store

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

// Run exercises s against the store.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("Funds", func(t *testing.T) { testFunds(t, newStore(t)) })
	t.Run("TaxSettings", func(t *testing.T) { testTaxSettings(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("AccountCursor", func(t *testing.T) { testAccountCursor(t, newStore(t)) })
	t.Run("ConcurrentAdjustment", func(t *testing.T) { testConcurrentAdjustment(t, newStore(t)) })
}

func newAccount(ext string) *account.Account {
	return &account.Account{
		Entity:     types.NewEntityAt(now),
		ID:         id.NewAccountID(),
		ExternalID: ext,
		Role:       account.RoleDeveloper,
		Status:     account.StatusActive,
	}
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()

	a := newAccount("dev-1")
	require.NoError(t, s.CreateAccount(ctx, a))
	assert.ErrorIs(t, s.CreateAccount(ctx, newAccount("dev-1")), economy.ErrAccountExists)
	require.NoError(t, s.CreateAccount(ctx, newAccount("")))
	require.NoError(t, s.CreateAccount(ctx, newAccount("")), "accounts without a handle do not collide")

	got, err := s.GetAccountByExternalID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID.String(), got.ID.String())
	assert.True(t, got.CreatedAt.Equal(now))
	assert.Nil(t, got.TaxExemptUntil)

	until := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	got.Balance = 42
	got.TaxExemptUntil = &until
	got.LastWeeklyBonusAt = &now
	require.NoError(t, s.UpdateAccount(ctx, got))

	got, err = s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Balance)
	require.NotNil(t, got.TaxExemptUntil)
	assert.True(t, got.TaxExemptUntil.Equal(until))

	_, err = s.GetAccount(ctx, id.NewAccountID())
	assert.ErrorIs(t, err, economy.ErrAccountNotFound)
	assert.ErrorIs(t, s.UpdateAccount(ctx, newAccount("")), economy.ErrAccountNotFound)

	n, err := s.CountAccounts(ctx, account.CountOpts{Role: account.RoleDeveloper, Status: account.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	page, err := s.ListAccounts(ctx, account.ListOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount("")
	require.NoError(t, s.CreateAccount(ctx, a))

	rows := []*account.Transaction{
		{ID: id.NewTransactionID(), AccountID: a.ID, Amount: 1000, Kind: account.KindMint, CreatedAt: now.AddDate(0, 0, -10)},
		{ID: id.NewTransactionID(), AccountID: a.ID, Amount: -25, Kind: account.KindTaxEarnings, Reference: account.RefBurn + "src", CreatedAt: now},
		{ID: id.NewTransactionID(), AccountID: a.ID, Amount: -25, Kind: account.KindTaxEarnings, Reference: account.RefReserve + "src", CreatedAt: now},
		{ID: id.NewTransactionID(), AccountID: a.ID, Amount: 10, Kind: account.KindWeeklyBonus, CreatedAt: now},
	}
	for _, r := range rows {
		require.NoError(t, s.AppendTransaction(ctx, r))
	}

	total, err := s.SumTransactions(ctx, account.SumQuery{AccountID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(960), total)

	distributed, err := s.SumTransactions(ctx, account.SumQuery{Kinds: account.DistributionKinds()})
	require.NoError(t, err)
	assert.Equal(t, int64(1010), distributed)

	burned, err := s.SumTransactions(ctx, account.SumQuery{Kinds: account.TaxKinds(), ReferencePrefix: account.RefBurn})
	require.NoError(t, err)
	assert.Equal(t, int64(-25), burned)

	week, err := s.SumTransactions(ctx, account.SumQuery{Window: types.WindowFor(types.WindowWeek, now)})
	require.NoError(t, err)
	assert.Equal(t, int64(-40), week)

	history, err := s.ListTransactions(ctx, a.ID, account.TxQuery{})
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, rows[3].ID.String(), history[0].ID.String(), "newest first")
	assert.Equal(t, rows[0].ID.String(), history[3].ID.String())

	limited, err := s.ListTransactions(ctx, a.ID, account.TxQuery{Kinds: []account.Kind{account.KindMint}, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	seen, err := s.HasReference(ctx, account.KindTaxEarnings, account.RefBurn+"src")
	require.NoError(t, err)
	assert.True(t, seen)
	seen, err = s.HasReference(ctx, account.KindMint, "nope")
	require.NoError(t, err)
	assert.False(t, seen)
}

func testFunds(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetFund(ctx, fund.TypeGrant)
	assert.ErrorIs(t, err, economy.ErrFundNotFound)

	f := &fund.Fund{Entity: types.NewEntityAt(now), ID: id.NewFundID(), Type: fund.TypeGrant, FiscalYear: 2025, Allocated: 100, Remaining: 100}
	require.NoError(t, s.CreateFund(ctx, f))
	assert.ErrorIs(t, s.CreateFund(ctx, &fund.Fund{Entity: types.NewEntityAt(now), ID: id.NewFundID(), Type: fund.TypeGrant, FiscalYear: 2025}), economy.ErrAlreadyExists)

	f.Remaining = 60
	require.NoError(t, s.UpdateFund(ctx, f))
	got, err := s.GetFund(ctx, fund.TypeGrant)
	require.NoError(t, err)
	assert.Equal(t, int64(60), got.Remaining)

	next := &fund.Fund{Entity: types.NewEntityAt(now), ID: id.NewFundID(), Type: fund.TypeGrant, FiscalYear: 2026, Allocated: 200, Remaining: 200}
	require.NoError(t, s.CreateFund(ctx, next))
	require.NoError(t, s.CreateFund(ctx, &fund.Fund{Entity: types.NewEntityAt(now), ID: id.NewFundID(), Type: fund.TypeReserve, FiscalYear: 2026, Allocated: 50, Remaining: 50}))

	funds, err := s.ListFunds(ctx)
	require.NoError(t, err)
	require.Len(t, funds, 2)
	assert.Equal(t, fund.TypeGrant, funds[0].Type)
	assert.Equal(t, 2026, funds[0].FiscalYear)
	assert.Equal(t, fund.TypeReserve, funds[1].Type)
}

func testTaxSettings(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetActiveTaxSettings(ctx)
	assert.ErrorIs(t, err, economy.ErrNoActiveTaxSettings)

	first := tax.Defaults(now)
	require.NoError(t, s.CreateTaxSettings(ctx, first))
	assert.ErrorIs(t, s.CreateTaxSettings(ctx, tax.Defaults(now.Add(time.Second))), economy.ErrAlreadyExists)

	later := now.AddDate(1, 0, 0)
	next, adj := tax.StepUp(first, tax.DefaultStep, 2026, later)
	require.NoError(t, s.CreateAdjustment(ctx, adj))
	require.NoError(t, s.DeactivateTaxSettings(ctx, first.ID))
	require.NoError(t, s.CreateTaxSettings(ctx, next))

	_, dup := tax.StepUp(first, tax.DefaultStep, 2026, later)
	assert.ErrorIs(t, s.CreateAdjustment(ctx, dup), economy.ErrAlreadyApplied)

	active, err := s.GetActiveTaxSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, next.ID.String(), active.ID.String())
	assert.True(t, active.MonthlyRate.Equal(next.MonthlyRate))

	at, err := s.GetTaxSettingsAt(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID.String(), at.ID.String())
	assert.False(t, at.IsActive)

	all, err := s.ListTaxSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := s.GetAdjustment(ctx, 2026)
	require.NoError(t, err)
	assert.True(t, got.NewPurchaseRate.Equal(adj.NewPurchaseRate))
	_, err = s.GetAdjustment(ctx, 1999)
	assert.ErrorIs(t, err, economy.ErrAdjustmentNotFound)

	list, err := s.ListAdjustments(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount("")
	require.NoError(t, s.CreateAccount(ctx, a))

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.AppendTransaction(ctx, &account.Transaction{
			ID: id.NewTransactionID(), AccountID: a.ID, Amount: 5, Kind: account.KindMint, CreatedAt: now,
		}); err != nil {
			return err
		}
		locked, err := tx.GetAccount(ctx, a.ID)
		if err != nil {
			return err
		}
		locked.Balance = 5
		if err := tx.UpdateAccount(ctx, locked); err != nil {
			return err
		}
		return tx.RunInTx(ctx, func(ctx context.Context, inner store.Store) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)

	sum, err := s.SumTransactions(ctx, account.SumQuery{AccountID: a.ID})
	require.NoError(t, err)
	assert.Zero(t, sum)

	err = s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.CreateAccount(ctx, newAccount("committed"))
	})
	require.NoError(t, err)
	_, err = s.GetAccountByExternalID(ctx, "committed")
	assert.NoError(t, err)
}

func testAccountCursor(t *testing.T, s store.Store) {
	ctx := context.Background()

	var ids []string
	for i := range 5 {
		a := newAccount("")
		// Two accounts share a creation time so ties fall back to the ID.
		a.CreatedAt = now.Add(time.Duration(i/2) * time.Minute)
		a.UpdatedAt = a.CreatedAt
		require.NoError(t, s.CreateAccount(ctx, a))
		ids = append(ids, a.ID.String())
	}

	first, err := s.ListAccounts(ctx, account.ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Dropping an already-listed account from the filter must not shift the
	// next page.
	gone := first[0]
	gone.Status = account.StatusDisabled
	require.NoError(t, s.UpdateAccount(ctx, gone))

	var seen []string
	for _, a := range first {
		seen = append(seen, a.ID.String())
	}
	after := account.CursorAfter(first[len(first)-1])
	for {
		page, err := s.ListAccounts(ctx, account.ListOpts{Status: account.StatusActive, Limit: 2, After: after})
		require.NoError(t, err)
		for _, a := range page {
			seen = append(seen, a.ID.String())
		}
		if len(page) < 2 {
			break
		}
		after = account.CursorAfter(page[len(page)-1])
	}
	assert.ElementsMatch(t, ids, seen)
}

func testConcurrentAdjustment(t *testing.T, s store.Store) {
	ctx := context.Background()

	newEngine := func() *economy.Economy {
		e := economy.New(s,
			economy.WithClock(economy.NewManualClock(now)),
			economy.WithoutScheduler(),
		)
		require.NoError(t, e.Start(ctx))
		return e
	}
	engines := []*economy.Economy{newEngine(), newEngine()}

	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := make([]*job.Report, len(engines))
	errs := make([]error, len(engines))
	var wg sync.WaitGroup
	for i, e := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i], errs[i] = e.RunAnnualAdjustmentJob(ctx, at)
		}()
	}
	wg.Wait()

	outcomes := map[job.Outcome]int{}
	for i := range engines {
		require.NoError(t, errs[i])
		outcomes[reports[i].Outcome]++
	}
	assert.Equal(t, map[job.Outcome]int{job.OutcomeApplied: 1, job.OutcomeNoOp: 1}, outcomes)

	adjustments, err := s.ListAdjustments(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, adjustments, 1)

	all, err := s.ListTaxSettings(ctx)
	require.NoError(t, err)
	active := 0
	for _, ts := range all {
		if ts.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}
