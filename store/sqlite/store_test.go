package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/store/storetest"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "economy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestEconomyOnSQLite(t *testing.T) {
	ctx := context.Background()
	clock := economy.NewManualClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	e := economy.New(newTestStore(t),
		economy.WithClock(clock),
		economy.WithoutScheduler(),
		economy.WithFundAllocations(map[fund.Type]int64{
			fund.TypeGrant:   3_024_000_000,
			fund.TypeRewards: 1_404_000_000,
			fund.TypeReserve: 756_000_000,
		}),
	)
	require.NoError(t, e.Start(ctx))

	a, err := e.OpenAccount(ctx, "dev-1", account.RoleDeveloper)
	require.NoError(t, err)
	_, err = e.CreditAccount(ctx, a.ID, 100, account.KindMint)
	require.NoError(t, err)

	res, err := e.ApplyEarningsTax(ctx, a.ID, 1000, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.TaxAmount)

	report, err := e.RunWeeklyBonusJob(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)

	balance, err := e.BalanceOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1060), balance)

	clock.Set(time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC))
	_, err = e.RunAnnualAdjustmentJob(ctx, clock.Now())
	require.NoError(t, err)
	settings, err := e.GetTaxSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5.5", settings.MonthlyRate.String())

	assert.NoError(t, e.VerifyInvariants(ctx))
}
