package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/economy/id"
	"github.com/xraph/economy/types"
)

type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
)

// Settings is one version of the tax configuration. Rates are percentages,
// so a MonthlyRate of 5 levies 5% on settled earnings. Exactly one version
// is active at a time; superseded versions are kept for history.
type Settings struct {
	types.Entity
	ID                  id.TaxSettingsID `json:"id"`
	MonthlyRate         decimal.Decimal  `json:"monthly_rate"`
	PurchaseRate        decimal.Decimal  `json:"purchase_rate"`
	CollectionFrequency Frequency        `json:"collection_frequency"`
	IsActive            bool             `json:"is_active"`
	NextAdjustmentYear  int              `json:"next_adjustment_year"`
	EffectiveFrom       time.Time        `json:"effective_from"`
}

// RateFor returns the rate that applies to the given event.
func (s *Settings) RateFor(e Event) decimal.Decimal {
	if e == EventPurchase {
		return s.PurchaseRate
	}
	return s.MonthlyRate
}

// Adjustment is the immutable audit record of one annual step-up.
type Adjustment struct {
	ID                   id.AdjustmentID  `json:"id"`
	Year                 int              `json:"adjustment_year"`
	PreviousMonthlyRate  decimal.Decimal  `json:"previous_monthly_rate"`
	NewMonthlyRate       decimal.Decimal  `json:"new_monthly_rate"`
	PreviousPurchaseRate decimal.Decimal  `json:"previous_purchase_rate"`
	NewPurchaseRate      decimal.Decimal  `json:"new_purchase_rate"`
	Amount               decimal.Decimal  `json:"amount"`
	SettingsID           id.TaxSettingsID `json:"settings_id"`
	AppliedAt            time.Time        `json:"applied_at"`
}

type Event string

const (
	EventEarnings Event = "earnings"
	EventPurchase Event = "purchase"
)

// Result describes one tax application. For earnings, Base is the gross
// amount and Net what the account kept. For purchases, Base is the price
// and Net is always zero since the price itself is settled by the caller.
type Result struct {
	AccountID    id.AccountID     `json:"account_id"`
	Event        Event            `json:"event"`
	Base         int64            `json:"base"`
	Rate         decimal.Decimal  `json:"rate"`
	TaxAmount    int64            `json:"tax_amount"`
	Burn         int64            `json:"burn"`
	ReserveShare int64            `json:"reserve_share"`
	Net          int64            `json:"net"`
	Exempt       bool             `json:"exempt"`
	SettingsID   id.TaxSettingsID `json:"settings_id"`
	AppliedAt    time.Time        `json:"applied_at"`
}

// Quote is a read-only preview of a purchase.
type Quote struct {
	Price  int64           `json:"price"`
	Tax    int64           `json:"tax"`
	Total  int64           `json:"total"`
	Rate   decimal.Decimal `json:"rate"`
	Exempt bool            `json:"exempt"`
}
