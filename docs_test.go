package economy_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/store/memory"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()
		clock := economy.NewManualClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

		e := economy.New(memory.New(),
			economy.WithLogger(slog.Default()),
			economy.WithClock(clock),
			economy.WithoutScheduler(),
			economy.WithFundAllocations(map[fund.Type]int64{
				fund.TypeGrant:   3_024_000_000,
				fund.TypeRewards: 1_404_000_000,
				fund.TypeReserve: 756_000_000,
			}),
		)
		if err := e.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer e.Stop()

		a, err := e.OpenAccount(ctx, "dev-1", account.RoleDeveloper)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.CreditAccount(ctx, a.ID, 100, account.KindMint); err != nil {
			t.Fatal(err)
		}

		res, err := e.ApplyEarningsTax(ctx, a.ID, 1000, clock.Now())
		if err != nil {
			t.Fatal(err)
		}
		if res.TaxAmount != 50 || res.Burn != 25 || res.ReserveShare != 25 || res.Net != 950 {
			t.Errorf("unexpected tax result: %+v", res)
		}
	})
}
