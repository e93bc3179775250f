// Package tax holds the tax configuration model and the pure arithmetic of
// levying, splitting, and stepping up rates.
package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/economy/id"
	"github.com/xraph/economy/types"
)

var (
	// DefaultMonthlyRate is the initial earnings tax in percent.
	DefaultMonthlyRate = decimal.NewFromInt(5)
	// DefaultPurchaseRate is the initial purchase tax in percent.
	DefaultPurchaseRate = decimal.RequireFromString("1.5")
	// DefaultStep is the annual increase, in percentage points, applied to both rates.
	DefaultStep = decimal.RequireFromString("0.5")
)

// Compute returns amount * ratePercent / 100 rounded to the nearest whole
// point, halves rounding up. Non-positive inputs yield zero.
func Compute(amount int64, ratePercent decimal.Decimal) int64 {
	if amount <= 0 || !ratePercent.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(ratePercent).Shift(-2).Round(0).IntPart()
}

// Split divides a rounded tax amount into its burn and reserve halves. The
// odd point, if any, goes to the reserve so burn+reserve == taxAmount.
func Split(taxAmount int64) (burn, reserve int64) {
	if taxAmount <= 0 {
		return 0, 0
	}
	burn = taxAmount / 2
	return burn, taxAmount - burn
}

// BurnOf returns the burned half of a levied tax amount, matching Split.
func BurnOf(taxAmount int64) int64 {
	burn, _ := Split(taxAmount)
	return burn
}

// Defaults returns the initial active settings for a ledger first started at now.
func Defaults(now time.Time) *Settings {
	return &Settings{
		Entity:              types.NewEntityAt(now),
		ID:                  id.NewTaxSettingsID(),
		MonthlyRate:         DefaultMonthlyRate,
		PurchaseRate:        DefaultPurchaseRate,
		CollectionFrequency: FrequencyMonthly,
		IsActive:            true,
		NextAdjustmentYear:  now.Year() + 1,
		EffectiveFrom:       now.UTC(),
	}
}

// StepUp derives the next settings version and the adjustment that records
// it. Rates increase by step percentage points, not compounded.
func StepUp(prev *Settings, step decimal.Decimal, year int, now time.Time) (*Settings, *Adjustment) {
	next := &Settings{
		Entity:              types.NewEntityAt(now),
		ID:                  id.NewTaxSettingsID(),
		MonthlyRate:         prev.MonthlyRate.Add(step),
		PurchaseRate:        prev.PurchaseRate.Add(step),
		CollectionFrequency: prev.CollectionFrequency,
		IsActive:            true,
		NextAdjustmentYear:  year + 1,
		EffectiveFrom:       now.UTC(),
	}
	adj := &Adjustment{
		ID:                   id.NewAdjustmentID(),
		Year:                 year,
		PreviousMonthlyRate:  prev.MonthlyRate,
		NewMonthlyRate:       next.MonthlyRate,
		PreviousPurchaseRate: prev.PurchaseRate,
		NewPurchaseRate:      next.PurchaseRate,
		Amount:               step,
		SettingsID:           next.ID,
		AppliedAt:            now.UTC(),
	}
	return next, adj
}
