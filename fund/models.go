// Package fund models the purpose-partitioned economy funds.
package fund

import (
	"fmt"

	"github.com/xraph/economy/id"
	"github.com/xraph/economy/types"
)

// Type names a fund. The set is closed.
type Type string

const (
	TypeGrant   Type = "grant"
	TypeRewards Type = "rewards"
	TypeReserve Type = "reserve"
)

// Types returns every fund type in display order.
func Types() []Type {
	return []Type{TypeGrant, TypeRewards, TypeReserve}
}

func (t Type) IsValid() bool {
	switch t {
	case TypeGrant, TypeRewards, TypeReserve:
		return true
	}
	return false
}

// ParseType parses s into a fund Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("fund: unknown type %q", s)
	}
	return t, nil
}

// Fund is the current-fiscal-year state of one fund.
//
// Grant and rewards funds are bounded above by Allocated. The reserve fund
// absorbs the reserve half of every tax event, tracked in Inflow, and has no
// upper bound.
type Fund struct {
	types.Entity
	ID         id.FundID `json:"id"`
	Type       Type      `json:"type"`
	FiscalYear int       `json:"fiscal_year"`
	Allocated  int64     `json:"allocated"`
	Remaining  int64     `json:"remaining"`
	Inflow     int64     `json:"inflow"`
}

// Unbounded reports whether the fund may grow past its allocation.
func (f *Fund) Unbounded() bool {
	return f.Type == TypeReserve
}

// Headroom returns how many points Replenish can still add before the fund
// hits its ceiling. The second result is false for unbounded funds.
func (f *Fund) Headroom() (int64, bool) {
	if f.Unbounded() {
		return 0, false
	}
	return max(0, f.Allocated-f.Remaining), true
}

// Disbursed returns the total paid out of the fund this fiscal year.
func (f *Fund) Disbursed() int64 {
	return f.Allocated + f.Inflow - f.Remaining
}

// Check validates 0 <= Remaining <= ceiling.
func (f *Fund) Check() error {
	if f.Remaining < 0 {
		return fmt.Errorf("fund %s: remaining %d is negative", f.Type, f.Remaining)
	}
	if !f.Unbounded() && f.Remaining > f.Allocated {
		return fmt.Errorf("fund %s: remaining %d exceeds allocated %d", f.Type, f.Remaining, f.Allocated)
	}
	return nil
}

// State is a read-only view of a fund.
type State struct {
	Type       Type  `json:"type"`
	FiscalYear int   `json:"fiscal_year"`
	Allocated  int64 `json:"allocated"`
	Remaining  int64 `json:"remaining"`
	Inflow     int64 `json:"inflow"`
	Disbursed  int64 `json:"disbursed"`
}

func (f *Fund) State() State {
	return State{
		Type:       f.Type,
		FiscalYear: f.FiscalYear,
		Allocated:  f.Allocated,
		Remaining:  f.Remaining,
		Inflow:     f.Inflow,
		Disbursed:  f.Disbursed(),
	}
}
