package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/tax"
	"github.com/xraph/economy/types"
)

// ==================== Account models ====================

type accountModel struct {
	ID                string     `bson:"_id"`
	ExternalID        *string    `bson:"external_id,omitempty"`
	Role              string     `bson:"role"`
	Status            string     `bson:"status"`
	Balance           int64      `bson:"balance"`
	LastWeeklyBonusAt *time.Time `bson:"last_weekly_bonus_at"`
	TaxExemptUntil    *time.Time `bson:"tax_exempt_until"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	m := &accountModel{
		ID:                a.ID.String(),
		Role:              string(a.Role),
		Status:            string(a.Status),
		Balance:           a.Balance,
		LastWeeklyBonusAt: a.LastWeeklyBonusAt,
		TaxExemptUntil:    a.TaxExemptUntil,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	// Leaving external_id unset keeps accounts without one out of the
	// partial unique index.
	if a.ExternalID != "" {
		ext := a.ExternalID
		m.ExternalID = &ext
	}
	return m
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse account ID %q: %w", m.ID, err)
	}
	a := &account.Account{
		Entity:            types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:                accountID,
		Role:              account.Role(m.Role),
		Status:            account.Status(m.Status),
		Balance:           m.Balance,
		LastWeeklyBonusAt: utcPtr(m.LastWeeklyBonusAt),
		TaxExemptUntil:    utcPtr(m.TaxExemptUntil),
	}
	if m.ExternalID != nil {
		a.ExternalID = *m.ExternalID
	}
	return a, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	ID        string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Amount    int64     `bson:"amount"`
	Kind      string    `bson:"kind"`
	Reference string    `bson:"reference"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"created_at"`
}

func toTransactionModel(tx *account.Transaction, seq int64) *transactionModel {
	return &transactionModel{
		ID:        tx.ID.String(),
		AccountID: tx.AccountID.String(),
		Amount:    tx.Amount,
		Kind:      string(tx.Kind),
		Reference: tx.Reference,
		Seq:       seq,
		CreatedAt: tx.CreatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*account.Transaction, error) {
	txID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction ID %q: %w", m.ID, err)
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, fmt.Errorf("parse account ID %q: %w", m.AccountID, err)
	}
	return &account.Transaction{
		ID:        txID,
		AccountID: accountID,
		Amount:    m.Amount,
		Kind:      account.Kind(m.Kind),
		Reference: m.Reference,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

// ==================== Fund models ====================

type fundModel struct {
	ID         string    `bson:"_id"`
	FundType   string    `bson:"fund_type"`
	FiscalYear int       `bson:"fiscal_year"`
	Allocated  int64     `bson:"allocated_amount"`
	Remaining  int64     `bson:"remaining_amount"`
	Inflow     int64     `bson:"inflow_amount"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toFundModel(f *fund.Fund) *fundModel {
	return &fundModel{
		ID:         f.ID.String(),
		FundType:   string(f.Type),
		FiscalYear: f.FiscalYear,
		Allocated:  f.Allocated,
		Remaining:  f.Remaining,
		Inflow:     f.Inflow,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

func fromFundModel(m *fundModel) (*fund.Fund, error) {
	fundID, err := id.ParseFundID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse fund ID %q: %w", m.ID, err)
	}
	return &fund.Fund{
		Entity:     types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:         fundID,
		Type:       fund.Type(m.FundType),
		FiscalYear: m.FiscalYear,
		Allocated:  m.Allocated,
		Remaining:  m.Remaining,
		Inflow:     m.Inflow,
	}, nil
}

// ==================== Tax models ====================

// Rates are stored as decimal strings so no precision is lost to floats.
type settingsModel struct {
	ID                  string    `bson:"_id"`
	MonthlyRate         string    `bson:"monthly_rate"`
	PurchaseRate        string    `bson:"purchase_rate"`
	CollectionFrequency string    `bson:"collection_frequency"`
	IsActive            bool      `bson:"is_active"`
	NextAdjustmentYear  int       `bson:"next_adjustment_year"`
	EffectiveFrom       time.Time `bson:"effective_from"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

func toSettingsModel(s *tax.Settings) *settingsModel {
	return &settingsModel{
		ID:                  s.ID.String(),
		MonthlyRate:         s.MonthlyRate.String(),
		PurchaseRate:        s.PurchaseRate.String(),
		CollectionFrequency: string(s.CollectionFrequency),
		IsActive:            s.IsActive,
		NextAdjustmentYear:  s.NextAdjustmentYear,
		EffectiveFrom:       s.EffectiveFrom,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func fromSettingsModel(m *settingsModel) (*tax.Settings, error) {
	settingsID, err := id.ParseTaxSettingsID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse tax settings ID %q: %w", m.ID, err)
	}
	monthly, err := decimal.NewFromString(m.MonthlyRate)
	if err != nil {
		return nil, fmt.Errorf("parse monthly rate %q: %w", m.MonthlyRate, err)
	}
	purchase, err := decimal.NewFromString(m.PurchaseRate)
	if err != nil {
		return nil, fmt.Errorf("parse purchase rate %q: %w", m.PurchaseRate, err)
	}
	return &tax.Settings{
		Entity:              types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:                  settingsID,
		MonthlyRate:         monthly,
		PurchaseRate:        purchase,
		CollectionFrequency: tax.Frequency(m.CollectionFrequency),
		IsActive:            m.IsActive,
		NextAdjustmentYear:  m.NextAdjustmentYear,
		EffectiveFrom:       m.EffectiveFrom.UTC(),
	}, nil
}

type adjustmentModel struct {
	ID                   string    `bson:"_id"`
	Year                 int       `bson:"adjustment_year"`
	PreviousMonthlyRate  string    `bson:"previous_monthly_rate"`
	NewMonthlyRate       string    `bson:"new_monthly_rate"`
	PreviousPurchaseRate string    `bson:"previous_purchase_rate"`
	NewPurchaseRate      string    `bson:"new_purchase_rate"`
	Amount               string    `bson:"adjustment_amount"`
	SettingsID           string    `bson:"settings_id"`
	AppliedAt            time.Time `bson:"applied_at"`
}

func toAdjustmentModel(a *tax.Adjustment) *adjustmentModel {
	return &adjustmentModel{
		ID:                   a.ID.String(),
		Year:                 a.Year,
		PreviousMonthlyRate:  a.PreviousMonthlyRate.String(),
		NewMonthlyRate:       a.NewMonthlyRate.String(),
		PreviousPurchaseRate: a.PreviousPurchaseRate.String(),
		NewPurchaseRate:      a.NewPurchaseRate.String(),
		Amount:               a.Amount.String(),
		SettingsID:           a.SettingsID.String(),
		AppliedAt:            a.AppliedAt,
	}
}

func fromAdjustmentModel(m *adjustmentModel) (*tax.Adjustment, error) {
	adjID, err := id.ParseAdjustmentID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse adjustment ID %q: %w", m.ID, err)
	}
	settingsID, err := id.ParseTaxSettingsID(m.SettingsID)
	if err != nil {
		return nil, fmt.Errorf("parse tax settings ID %q: %w", m.SettingsID, err)
	}

	rates := make([]decimal.Decimal, 5)
	for i, s := range []string{m.PreviousMonthlyRate, m.NewMonthlyRate, m.PreviousPurchaseRate, m.NewPurchaseRate, m.Amount} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse adjustment %d rate %q: %w", m.Year, s, err)
		}
		rates[i] = d
	}

	return &tax.Adjustment{
		ID:                   adjID,
		Year:                 m.Year,
		PreviousMonthlyRate:  rates[0],
		NewMonthlyRate:       rates[1],
		PreviousPurchaseRate: rates[2],
		NewPurchaseRate:      rates[3],
		Amount:               rates[4],
		SettingsID:           settingsID,
		AppliedAt:            m.AppliedAt.UTC(),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
