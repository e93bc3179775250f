package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/tax"
	"github.com/xraph/economy/types"
)

// timeLayout is fixed width and always UTC so TEXT columns sort and
// compare chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var timeNow = time.Now

func stamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestamp scans TIMESTAMPTZ values and the TEXT encoding alike.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	parsed, err := parseTime(src)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t timestamp) Value() (driver.Value, error) {
	return stamp(t.Time), nil
}

// nullTimestamp is a nullable timestamp.
type nullTimestamp struct {
	Time  time.Time
	Valid bool
}

func (t *nullTimestamp) Scan(src any) error {
	if src == nil {
		t.Time, t.Valid = time.Time{}, false
		return nil
	}
	parsed, err := parseTime(src)
	if err != nil {
		return err
	}
	t.Time, t.Valid = parsed, true
	return nil
}

func (t nullTimestamp) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return stamp(t.Time), nil
}

func (t nullTimestamp) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) nullTimestamp {
	if t == nil {
		return nullTimestamp{}
	}
	return nullTimestamp{Time: *t, Valid: true}
}

func parseTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTimeString(v)
	case []byte:
		return parseTimeString(string(v))
	default:
		return time.Time{}, fmt.Errorf("sqlstore: cannot scan %T into time", src)
	}
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("sqlstore: unrecognized time %q", s)
}

// ==================== Account ====================

type accountRow struct {
	ID                id.ID          `db:"id"`
	ExternalID        sql.NullString `db:"external_id"`
	Role              string         `db:"role"`
	Status            string         `db:"status"`
	Balance           int64          `db:"balance"`
	LastWeeklyBonusAt nullTimestamp  `db:"last_weekly_bonus_at"`
	TaxExemptUntil    nullTimestamp  `db:"tax_exempt_until"`
	CreatedAt         timestamp      `db:"created_at"`
	UpdatedAt         timestamp      `db:"updated_at"`
}

const accountColumns = `id, external_id, role, status, balance, last_weekly_bonus_at, tax_exempt_until, created_at, updated_at`

func (r *accountRow) fields() []any {
	return []any{&r.ID, &r.ExternalID, &r.Role, &r.Status, &r.Balance, &r.LastWeeklyBonusAt, &r.TaxExemptUntil, &r.CreatedAt, &r.UpdatedAt}
}

func toAccountRow(a *account.Account) accountRow {
	return accountRow{
		ID:                a.ID,
		ExternalID:        sql.NullString{String: a.ExternalID, Valid: a.ExternalID != ""},
		Role:              string(a.Role),
		Status:            string(a.Status),
		Balance:           a.Balance,
		LastWeeklyBonusAt: nullTime(a.LastWeeklyBonusAt),
		TaxExemptUntil:    nullTime(a.TaxExemptUntil),
		CreatedAt:         timestamp{a.CreatedAt},
		UpdatedAt:         timestamp{a.UpdatedAt},
	}
}

func (r *accountRow) toAccount() *account.Account {
	return &account.Account{
		Entity:            types.Entity{CreatedAt: r.CreatedAt.Time, UpdatedAt: r.UpdatedAt.Time},
		ID:                r.ID,
		ExternalID:        r.ExternalID.String,
		Role:              account.Role(r.Role),
		Status:            account.Status(r.Status),
		Balance:           r.Balance,
		LastWeeklyBonusAt: r.LastWeeklyBonusAt.ptr(),
		TaxExemptUntil:    r.TaxExemptUntil.ptr(),
	}
}

// ==================== Transaction ====================

type transactionRow struct {
	ID        id.ID     `db:"id"`
	AccountID id.ID     `db:"account_id"`
	Amount    int64     `db:"amount"`
	Kind      string    `db:"kind"`
	Reference string    `db:"reference"`
	CreatedAt timestamp `db:"created_at"`
}

const transactionColumns = `id, account_id, amount, kind, reference, created_at`

func (r *transactionRow) fields() []any {
	return []any{&r.ID, &r.AccountID, &r.Amount, &r.Kind, &r.Reference, &r.CreatedAt}
}

func (r *transactionRow) toTransaction() *account.Transaction {
	return &account.Transaction{
		ID:        r.ID,
		AccountID: r.AccountID,
		Amount:    r.Amount,
		Kind:      account.Kind(r.Kind),
		Reference: r.Reference,
		CreatedAt: r.CreatedAt.Time,
	}
}

// ==================== Fund ====================

type fundRow struct {
	ID         id.ID     `db:"id"`
	FundType   string    `db:"fund_type"`
	FiscalYear int       `db:"fiscal_year"`
	Allocated  int64     `db:"allocated_amount"`
	Remaining  int64     `db:"remaining_amount"`
	Inflow     int64     `db:"inflow_amount"`
	CreatedAt  timestamp `db:"created_at"`
	UpdatedAt  timestamp `db:"updated_at"`
}

const fundColumns = `id, fund_type, fiscal_year, allocated_amount, remaining_amount, inflow_amount, created_at, updated_at`

func (r *fundRow) fields() []any {
	return []any{&r.ID, &r.FundType, &r.FiscalYear, &r.Allocated, &r.Remaining, &r.Inflow, &r.CreatedAt, &r.UpdatedAt}
}

func (r *fundRow) toFund() *fund.Fund {
	return &fund.Fund{
		Entity:     types.Entity{CreatedAt: r.CreatedAt.Time, UpdatedAt: r.UpdatedAt.Time},
		ID:         r.ID,
		Type:       fund.Type(r.FundType),
		FiscalYear: r.FiscalYear,
		Allocated:  r.Allocated,
		Remaining:  r.Remaining,
		Inflow:     r.Inflow,
	}
}

// ==================== Tax ====================

type settingsRow struct {
	ID                  id.ID           `db:"id"`
	MonthlyRate         decimal.Decimal `db:"monthly_tax_rate"`
	PurchaseRate        decimal.Decimal `db:"purchase_tax_rate"`
	CollectionFrequency string          `db:"collection_frequency"`
	IsActive            bool            `db:"is_active"`
	NextAdjustmentYear  int             `db:"next_adjustment_year"`
	EffectiveFrom       timestamp       `db:"effective_from"`
	CreatedAt           timestamp       `db:"created_at"`
	UpdatedAt           timestamp       `db:"updated_at"`
}

const settingsColumns = `id, monthly_tax_rate, purchase_tax_rate, collection_frequency, is_active, next_adjustment_year, effective_from, created_at, updated_at`

func (r *settingsRow) fields() []any {
	return []any{&r.ID, &r.MonthlyRate, &r.PurchaseRate, &r.CollectionFrequency, &r.IsActive, &r.NextAdjustmentYear, &r.EffectiveFrom, &r.CreatedAt, &r.UpdatedAt}
}

func (r *settingsRow) toSettings() *tax.Settings {
	return &tax.Settings{
		Entity:              types.Entity{CreatedAt: r.CreatedAt.Time, UpdatedAt: r.UpdatedAt.Time},
		ID:                  r.ID,
		MonthlyRate:         r.MonthlyRate,
		PurchaseRate:        r.PurchaseRate,
		CollectionFrequency: tax.Frequency(r.CollectionFrequency),
		IsActive:            r.IsActive,
		NextAdjustmentYear:  r.NextAdjustmentYear,
		EffectiveFrom:       r.EffectiveFrom.Time,
	}
}

type adjustmentRow struct {
	ID                   id.ID           `db:"id"`
	Year                 int             `db:"adjustment_year"`
	PreviousMonthlyRate  decimal.Decimal `db:"previous_monthly_rate"`
	NewMonthlyRate       decimal.Decimal `db:"new_monthly_rate"`
	PreviousPurchaseRate decimal.Decimal `db:"previous_purchase_rate"`
	NewPurchaseRate      decimal.Decimal `db:"new_purchase_rate"`
	Amount               decimal.Decimal `db:"amount"`
	SettingsID           id.ID           `db:"settings_id"`
	AppliedAt            timestamp       `db:"applied_at"`
}

const adjustmentColumns = `id, adjustment_year, previous_monthly_rate, new_monthly_rate, previous_purchase_rate, new_purchase_rate, amount, settings_id, applied_at`

func (r *adjustmentRow) fields() []any {
	return []any{&r.ID, &r.Year, &r.PreviousMonthlyRate, &r.NewMonthlyRate, &r.PreviousPurchaseRate, &r.NewPurchaseRate, &r.Amount, &r.SettingsID, &r.AppliedAt}
}

func (r *adjustmentRow) toAdjustment() *tax.Adjustment {
	return &tax.Adjustment{
		ID:                   r.ID,
		Year:                 r.Year,
		PreviousMonthlyRate:  r.PreviousMonthlyRate,
		NewMonthlyRate:       r.NewMonthlyRate,
		PreviousPurchaseRate: r.PreviousPurchaseRate,
		NewPurchaseRate:      r.NewPurchaseRate,
		Amount:               r.Amount,
		SettingsID:           r.SettingsID,
		AppliedAt:            r.AppliedAt.Time,
	}
}
