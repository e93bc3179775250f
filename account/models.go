package account

import (
	"time"

	"github.com/xraph/economy/id"
	"github.com/xraph/economy/types"
)

type Role string

const (
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
)

func (r Role) IsValid() bool {
	return r == RoleDeveloper || r == RoleUser
}

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Account holds a point balance. Accounts are never deleted; a disabled
// account keeps its balance and history but rejects new mutations.
type Account struct {
	types.Entity
	ID                id.AccountID `json:"id"`
	ExternalID        string       `json:"external_id"`
	Role              Role         `json:"role"`
	Status            Status       `json:"status"`
	Balance           int64        `json:"balance"`
	LastWeeklyBonusAt *time.Time   `json:"last_weekly_bonus_at,omitempty"`
	TaxExemptUntil    *time.Time   `json:"tax_exempt_until,omitempty"`
}

func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// IsTaxExempt reports whether a tax event at now would be levied at zero.
// A zero balance always exempts, regardless of the exemption window.
func (a *Account) IsTaxExempt(now time.Time) bool {
	if a.Balance == 0 {
		return true
	}
	return a.TaxExemptUntil != nil && now.Before(*a.TaxExemptUntil)
}

// BonusDue reports whether at least interval has elapsed since the last
// weekly bonus. A clock that moved backwards never makes a bonus due.
func (a *Account) BonusDue(now time.Time, interval time.Duration) bool {
	if a.LastWeeklyBonusAt == nil {
		return true
	}
	return now.Sub(*a.LastWeeklyBonusAt) >= interval
}

// ListOpts filters and pages ListAccounts. Accounts come back ordered by
// (CreatedAt, ID). Set After instead of Offset when rows may change status
// between pages; the cursor does not shift when earlier rows drop out of
// the filter.
type ListOpts struct {
	Role   Role
	Status Status
	Limit  int
	Offset int
	After  *Cursor
}

// Cursor is a position in the (CreatedAt, ID) account order.
type Cursor struct {
	CreatedAt time.Time
	ID        id.AccountID
}

// CursorAfter returns the cursor that resumes listing after a.
func CursorAfter(a *Account) *Cursor {
	return &Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
}

// Before reports whether a sorts at or before the cursor.
func (c *Cursor) Before(a *Account) bool {
	if !a.CreatedAt.Equal(c.CreatedAt) {
		return a.CreatedAt.Before(c.CreatedAt)
	}
	return a.ID.String() <= c.ID.String()
}

type CountOpts struct {
	Role   Role
	Status Status
}
