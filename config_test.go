package economy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/store/memory"
)

func TestConfigOptions(t *testing.T) {
	cfg := economy.DefaultConfig()
	cfg.Schedule.Enabled = false
	cfg.MonthlyTaxRate = "7"
	cfg.Allocations = map[string]int64{"grant": 600, "rewards": 300, "reserve": 100}
	cfg.AnnualAllocation = 1000

	opts, err := cfg.Options()
	require.NoError(t, err)

	clock := economy.NewManualClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	e := economy.New(memory.New(), append(opts, economy.WithClock(clock))...)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	t.Cleanup(func() { _ = e.Stop() })

	settings, err := e.GetTaxSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", settings.MonthlyRate.String())
	assert.Equal(t, "1.5", settings.PurchaseRate.String())

	funds, err := e.GetFundBreakdown(ctx)
	require.NoError(t, err)
	require.Len(t, funds, 3)
	assert.Equal(t, fund.TypeGrant, funds[0].Type)
	assert.Equal(t, int64(600), funds[0].Allocated)
	assert.Equal(t, int64(1000), e.TotalAllocated())
}

func TestConfigOptionsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*economy.Config)
		target error
	}{
		{"bad timezone", func(c *economy.Config) { c.Timezone = "Mars/Olympus" }, nil},
		{"unknown fund", func(c *economy.Config) { c.Allocations = map[string]int64{"treasury": 1} }, nil},
		{"over allocated", func(c *economy.Config) {
			c.AnnualAllocation = 10
			c.Allocations = map[string]int64{"grant": 11}
		}, economy.ErrOverAllocated},
		{"negative rate", func(c *economy.Config) { c.PurchaseTaxRate = "-1" }, nil},
		{"malformed rate", func(c *economy.Config) { c.AdjustmentStep = "half" }, nil},
		{"bad cron", func(c *economy.Config) { c.Schedule.WeeklyBonus = "every monday" }, nil},
		{"bad bonus fund", func(c *economy.Config) { c.WeeklyBonusFund = "treasury" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := economy.DefaultConfig()
			tt.mutate(&cfg)
			_, err := cfg.Options()
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			} else {
				var verr economy.ValidationError
				assert.ErrorAs(t, err, &verr)
			}
		})
	}
}

func TestZeroConfigKeepsDefaults(t *testing.T) {
	opts, err := economy.Config{}.Options()
	require.NoError(t, err)
	assert.Empty(t, opts)
}
