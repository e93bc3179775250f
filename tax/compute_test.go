package tax_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy/tax"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   string
		want   int64
	}{
		{"five percent of 1000", 1000, "5", 50},
		{"purchase 1.5 percent of 100 rounds half up", 100, "1.5", 2},
		{"below half rounds down", 10, "1.5", 0},
		{"exact half rounds up", 10, "5", 1},
		{"5.5 percent of 333", 333, "5.5", 18},
		{"zero amount", 0, "5", 0},
		{"negative amount", -100, "5", 0},
		{"zero rate", 1000, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tax.Compute(tt.amount, decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitIsExact(t *testing.T) {
	for taxAmount := int64(0); taxAmount <= 1001; taxAmount++ {
		burn, reserve := tax.Split(taxAmount)
		require.Equal(t, taxAmount, burn+reserve, "tax %d", taxAmount)
		require.GreaterOrEqual(t, reserve, burn, "odd point goes to reserve")
		require.LessOrEqual(t, reserve-burn, int64(1))
	}

	burn, reserve := tax.Split(50)
	assert.Equal(t, int64(25), burn)
	assert.Equal(t, int64(25), reserve)

	burn, reserve = tax.Split(7)
	assert.Equal(t, int64(3), burn)
	assert.Equal(t, int64(4), reserve)
}

func TestStepUp(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	prev := tax.Defaults(now.AddDate(-1, 0, 0))

	next, adj := tax.StepUp(prev, tax.DefaultStep, 2026, now)

	assert.True(t, next.MonthlyRate.Equal(decimal.RequireFromString("5.5")), "monthly %s", next.MonthlyRate)
	assert.True(t, next.PurchaseRate.Equal(decimal.NewFromInt(2)), "purchase %s", next.PurchaseRate)
	assert.Equal(t, 2027, next.NextAdjustmentYear)
	assert.True(t, next.IsActive)

	assert.Equal(t, 2026, adj.Year)
	assert.True(t, adj.PreviousMonthlyRate.Equal(decimal.NewFromInt(5)))
	assert.True(t, adj.PreviousPurchaseRate.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, next.ID, adj.SettingsID)
}

func TestDefaults(t *testing.T) {
	now := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	s := tax.Defaults(now)
	assert.Equal(t, 2026, s.NextAdjustmentYear)
	assert.Equal(t, tax.FrequencyMonthly, s.CollectionFrequency)
	assert.True(t, s.RateFor(tax.EventPurchase).Equal(decimal.RequireFromString("1.5")))
	assert.True(t, s.RateFor(tax.EventEarnings).Equal(decimal.NewFromInt(5)))
}
