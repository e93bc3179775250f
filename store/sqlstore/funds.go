package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xraph/economy"
	"github.com/xraph/economy/fund"
)

// ==================== Fund Store ====================

// Funds keep one row per (type, fiscal year). Reads return the latest year.

func (s *Store) CreateFund(ctx context.Context, f *fund.Fund) error {
	var latest sql.NullInt64
	if err := s.get(ctx, &latest, `SELECT MAX(fiscal_year) FROM economy_funds WHERE fund_type = ?`, string(f.Type)); err != nil {
		return err
	}
	if latest.Valid && int(latest.Int64) >= f.FiscalYear {
		return economy.ErrAlreadyExists
	}

	_, err := s.exec(ctx, `INSERT INTO economy_funds (`+fundColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, string(f.Type), f.FiscalYear, f.Allocated, f.Remaining, f.Inflow, stamp(f.CreatedAt), stamp(f.UpdatedAt))
	if s.unique(err) {
		return economy.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetFund(ctx context.Context, fundType fund.Type) (*fund.Fund, error) {
	var r fundRow
	err := s.get(ctx, &r, `SELECT `+fundColumns+` FROM economy_funds
WHERE fund_type = ? ORDER BY fiscal_year DESC LIMIT 1`+s.lock(), string(fundType))
	if err != nil {
		if s.isNoRows(err) {
			return nil, economy.ErrFundNotFound
		}
		return nil, err
	}
	return r.toFund(), nil
}

func (s *Store) UpdateFund(ctx context.Context, f *fund.Fund) error {
	return s.execOne(ctx, economy.ErrFundNotFound, `
UPDATE economy_funds SET allocated_amount = ?, remaining_amount = ?, inflow_amount = ?, updated_at = ?
WHERE id = ?`,
		f.Allocated, f.Remaining, f.Inflow, stamp(f.UpdatedAt), f.ID)
}

func (s *Store) ListFunds(ctx context.Context) ([]*fund.Fund, error) {
	var rows []fundRow
	err := s.selectAll(ctx, &rows, `SELECT `+fundColumns+` FROM economy_funds f
WHERE fiscal_year = (SELECT MAX(fiscal_year) FROM economy_funds WHERE fund_type = f.fund_type)`)
	if err != nil {
		return nil, fmt.Errorf("%s: list funds: %w", s.dialect.Name, err)
	}

	byType := make(map[fund.Type]*fund.Fund, len(rows))
	for i := range rows {
		f := rows[i].toFund()
		byType[f.Type] = f
	}
	out := make([]*fund.Fund, 0, len(byType))
	for _, t := range fund.Types() {
		if f, ok := byType[t]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}
