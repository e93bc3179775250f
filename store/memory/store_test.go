package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/store/storetest"
	"github.com/xraph/economy/tax"
	"github.com/xraph/economy/types"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newAccount(ext string) *account.Account {
	return &account.Account{
		Entity:     types.NewEntityAt(now),
		ID:         id.NewAccountID(),
		ExternalID: ext,
		Role:       account.RoleDeveloper,
		Status:     account.StatusActive,
	}
}

func TestAccountsCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := newAccount("dev-1")
	require.NoError(t, s.CreateAccount(ctx, a))
	assert.ErrorIs(t, s.CreateAccount(ctx, a), economy.ErrAccountExists)
	assert.ErrorIs(t, s.CreateAccount(ctx, newAccount("dev-1")), economy.ErrAccountExists)

	got, err := s.GetAccountByExternalID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID.String(), got.ID.String())

	got.Balance = 99
	fresh, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, fresh.Balance, "returned accounts are copies")

	_, err = s.GetAccount(ctx, id.NewAccountID())
	assert.ErrorIs(t, err, economy.ErrAccountNotFound)

	user := newAccount("")
	user.Role = account.RoleUser
	require.NoError(t, s.CreateAccount(ctx, user))

	n, err := s.CountAccounts(ctx, account.CountOpts{Role: account.RoleDeveloper})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := s.ListAccounts(ctx, account.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, user.ID.String(), all[0].ID.String())
}

func TestRunInTxRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := newAccount("")
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.CreateFund(ctx, &fund.Fund{ID: id.NewFundID(), Type: fund.TypeReserve, FiscalYear: 2025, Allocated: 10, Remaining: 10}))

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		require.NoError(t, tx.AppendTransaction(ctx, &account.Transaction{
			ID: id.NewTransactionID(), AccountID: a.ID, Amount: 5, Kind: account.KindMint, CreatedAt: now,
		}))
		a.Balance = 5
		require.NoError(t, tx.UpdateAccount(ctx, a))

		f, err := tx.GetFund(ctx, fund.TypeReserve)
		require.NoError(t, err)
		f.Remaining = 3
		require.NoError(t, tx.UpdateFund(ctx, f))

		require.NoError(t, tx.CreateAccount(ctx, newAccount("ghost")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)

	sum, err := s.SumTransactions(ctx, account.SumQuery{AccountID: a.ID})
	require.NoError(t, err)
	assert.Zero(t, sum)

	f, err := s.GetFund(ctx, fund.TypeReserve)
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.Remaining)

	_, err = s.GetAccountByExternalID(ctx, "ghost")
	assert.ErrorIs(t, err, economy.ErrAccountNotFound)
}

func TestNestedRunInTxJoinsOuter(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.RunInTx(ctx, func(ctx context.Context, inner store.Store) error {
			return inner.CreateAccount(ctx, newAccount("nested"))
		})
	})
	require.NoError(t, err)

	_, err = s.GetAccountByExternalID(ctx, "nested")
	assert.NoError(t, err)
}

func TestSumAndReferences(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := newAccount("")
	require.NoError(t, s.CreateAccount(ctx, a))

	rows := []*account.Transaction{
		{ID: id.NewTransactionID(), AccountID: a.ID, Amount: 1000, Kind: account.KindMint, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: id.NewTransactionID(), AccountID: a.ID, Amount: -25, Kind: account.KindTaxEarnings, Reference: account.RefBurn + "x", CreatedAt: now},
		{ID: id.NewTransactionID(), AccountID: a.ID, Amount: -25, Kind: account.KindTaxEarnings, Reference: account.RefReserve + "x", CreatedAt: now},
	}
	for _, r := range rows {
		require.NoError(t, s.AppendTransaction(ctx, r))
	}

	burned, err := s.SumTransactions(ctx, account.SumQuery{Kinds: account.TaxKinds(), ReferencePrefix: account.RefBurn})
	require.NoError(t, err)
	assert.Equal(t, int64(-25), burned)

	weekly, err := s.SumTransactions(ctx, account.SumQuery{Window: types.WindowFor(types.WindowWeek, now)})
	require.NoError(t, err)
	assert.Equal(t, int64(-50), weekly)

	seen, err := s.HasReference(ctx, account.KindTaxEarnings, account.RefBurn+"x")
	require.NoError(t, err)
	assert.True(t, seen)
	seen, err = s.HasReference(ctx, account.KindMint, account.RefBurn+"x")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestTaxSettingsAndAdjustments(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetActiveTaxSettings(ctx)
	assert.ErrorIs(t, err, economy.ErrNoActiveTaxSettings)

	first := tax.Defaults(now)
	require.NoError(t, s.CreateTaxSettings(ctx, first))
	assert.ErrorIs(t, s.CreateTaxSettings(ctx, tax.Defaults(now)), economy.ErrAlreadyExists)

	later := now.AddDate(1, 0, 0)
	next, adj := tax.StepUp(first, tax.DefaultStep, 2026, later)
	require.NoError(t, s.CreateAdjustment(ctx, adj))
	assert.ErrorIs(t, s.CreateAdjustment(ctx, adj), economy.ErrAlreadyApplied)
	require.NoError(t, s.DeactivateTaxSettings(ctx, first.ID))
	require.NoError(t, s.CreateTaxSettings(ctx, next))

	at, err := s.GetTaxSettingsAt(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID.String(), at.ID.String())

	at, err = s.GetTaxSettingsAt(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, next.ID.String(), at.ID.String())

	// Before any version existed, the active one applies.
	at, err = s.GetTaxSettingsAt(ctx, now.AddDate(-5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, next.ID.String(), at.ID.String())

	got, err := s.GetAdjustment(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year)

	_, err = s.GetAdjustment(ctx, 2030)
	assert.ErrorIs(t, err, economy.ErrAdjustmentNotFound)
}

func TestFundsReseed(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateFund(ctx, &fund.Fund{ID: id.NewFundID(), Type: fund.TypeGrant, FiscalYear: 2025, Allocated: 100, Remaining: 100}))
	assert.ErrorIs(t, s.CreateFund(ctx, &fund.Fund{ID: id.NewFundID(), Type: fund.TypeGrant, FiscalYear: 2025}), economy.ErrAlreadyExists)
	require.NoError(t, s.CreateFund(ctx, &fund.Fund{ID: id.NewFundID(), Type: fund.TypeGrant, FiscalYear: 2026, Allocated: 200, Remaining: 200}))

	f, err := s.GetFund(ctx, fund.TypeGrant)
	require.NoError(t, err)
	assert.Equal(t, 2026, f.FiscalYear)

	_, err = s.GetFund(ctx, fund.TypeRewards)
	assert.ErrorIs(t, err, economy.ErrFundNotFound)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}
