package mongo

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove/drivers/mongodriver"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/store/storetest"
	"github.com/xraph/economy/tax"
	"github.com/xraph/economy/types"
)

func TestAccountModelRoundTrip(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	until := now.AddDate(0, 1, 0)
	a := &account.Account{
		Entity:         types.NewEntityAt(now),
		ID:             id.NewAccountID(),
		Role:           account.RoleDeveloper,
		Status:         account.StatusActive,
		Balance:        120,
		TaxExemptUntil: &until,
	}

	m := toAccountModel(a)
	assert.Nil(t, m.ExternalID, "empty external ID stays out of the unique index")

	got, err := fromAccountModel(m)
	require.NoError(t, err)
	assert.Equal(t, a.ID.String(), got.ID.String())
	assert.Equal(t, int64(120), got.Balance)
	assert.Empty(t, got.ExternalID)
	assert.Nil(t, got.LastWeeklyBonusAt)
	require.NotNil(t, got.TaxExemptUntil)
	assert.True(t, got.TaxExemptUntil.Equal(until))

	a.ExternalID = "user-42"
	m = toAccountModel(a)
	require.NotNil(t, m.ExternalID)
	assert.Equal(t, "user-42", *m.ExternalID)
}

func TestFromAccountModelRejectsForeignID(t *testing.T) {
	_, err := fromAccountModel(&accountModel{ID: id.NewFundID().String()})
	assert.Error(t, err)
}

func TestAdjustmentModelKeepsDecimalPrecision(t *testing.T) {
	adj := &tax.Adjustment{
		ID:                   id.NewAdjustmentID(),
		Year:                 2026,
		PreviousMonthlyRate:  decimal.RequireFromString("5"),
		NewMonthlyRate:       decimal.RequireFromString("5.5"),
		PreviousPurchaseRate: decimal.RequireFromString("2"),
		NewPurchaseRate:      decimal.RequireFromString("2.5"),
		Amount:               decimal.RequireFromString("0.5"),
		SettingsID:           id.NewTaxSettingsID(),
		AppliedAt:            time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC),
	}

	m := toAdjustmentModel(adj)
	assert.Equal(t, "5.5", m.NewMonthlyRate)

	got, err := fromAdjustmentModel(m)
	require.NoError(t, err)
	assert.True(t, got.NewMonthlyRate.Equal(adj.NewMonthlyRate))
	assert.True(t, got.Amount.Equal(adj.Amount))
	assert.Equal(t, adj.SettingsID.String(), got.SettingsID.String())

	m.NewPurchaseRate = "lots"
	_, err = fromAdjustmentModel(m)
	assert.Error(t, err)
}

func TestTxFilter(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.AddDate(0, 1, 0)

	f := txFilter(account.SumQuery{
		Kinds:           account.TaxKinds(),
		ReferencePrefix: "burn:",
		Window:          types.Window{Since: since, Until: until},
	})

	assert.Equal(t, bson.M{"$in": []string{"tax-earnings", "tax-purchase"}}, f["kind"])
	assert.Equal(t, bson.Regex{Pattern: "^burn:"}, f["reference"])
	assert.Equal(t, bson.M{"$gte": since, "$lte": until}, f["created_at"])
	assert.NotContains(t, f, "account_id")

	assert.Empty(t, txFilter(account.SumQuery{}))
}

func TestMigrationIndexesCoverCollections(t *testing.T) {
	idx := migrationIndexes()
	for _, col := range []string{colAccounts, colTransactions, colFunds, colTaxSettings, colAdjustments} {
		assert.NotEmpty(t, idx[col], col)
	}
}

func TestMigrationGroupIsOrdered(t *testing.T) {
	ms := Migrations.Migrations()
	require.Len(t, ms, 2)
	assert.Equal(t, "create_economy_indexes", ms[0].Name)
	assert.Equal(t, "index_accounts_created", ms[1].Name)
	for _, m := range ms {
		assert.Equal(t, "economy", m.Group)
		assert.NotNil(t, m.Up)
	}
}

func TestNextSeqIsMonotonic(t *testing.T) {
	s := &Store{seq: &atomic.Int64{}}
	prev := s.nextSeq()
	for range 1000 {
		next := s.nextSeq()
		require.Greater(t, next, prev)
		prev = next
	}
}

// TestStoreContract needs a replica set; set ECONOMY_TEST_MONGO_URI to run it.
func TestStoreContract(t *testing.T) {
	uri := os.Getenv("ECONOMY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ECONOMY_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Open(ctx, uri, "economy_test")
		require.NoError(t, err)
		require.NoError(t, mongodriver.Unwrap(s.DB()).Database().Drop(ctx))
		require.NoError(t, s.Migrate(ctx))
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
