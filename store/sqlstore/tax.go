package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/economy"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/tax"
)

// ==================== Tax Settings Store ====================

func (s *Store) CreateTaxSettings(ctx context.Context, t *tax.Settings) error {
	_, err := s.exec(ctx, `INSERT INTO tax_settings (`+settingsColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.MonthlyRate.String(), t.PurchaseRate.String(), string(t.CollectionFrequency), t.IsActive,
		t.NextAdjustmentYear, stamp(t.EffectiveFrom), stamp(t.CreatedAt), stamp(t.UpdatedAt))
	if s.unique(err) {
		return economy.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetActiveTaxSettings(ctx context.Context) (*tax.Settings, error) {
	var r settingsRow
	err := s.get(ctx, &r, `SELECT `+settingsColumns+` FROM tax_settings WHERE is_active = ?`+s.lock(), true)
	if err != nil {
		if s.isNoRows(err) {
			return nil, economy.ErrNoActiveTaxSettings
		}
		return nil, err
	}
	return r.toSettings(), nil
}

func (s *Store) GetTaxSettingsAt(ctx context.Context, at time.Time) (*tax.Settings, error) {
	var r settingsRow
	err := s.get(ctx, &r, `SELECT `+settingsColumns+` FROM tax_settings
WHERE effective_from <= ? ORDER BY effective_from DESC LIMIT 1`, stamp(at))
	if err != nil {
		if s.isNoRows(err) {
			return s.GetActiveTaxSettings(ctx)
		}
		return nil, err
	}
	return r.toSettings(), nil
}

func (s *Store) DeactivateTaxSettings(ctx context.Context, settingsID id.TaxSettingsID) error {
	return s.execOne(ctx, economy.ErrNoActiveTaxSettings,
		`UPDATE tax_settings SET is_active = ?, updated_at = ? WHERE id = ?`,
		false, stamp(timeNow()), settingsID)
}

func (s *Store) ListTaxSettings(ctx context.Context) ([]*tax.Settings, error) {
	var rows []settingsRow
	if err := s.selectAll(ctx, &rows, `SELECT `+settingsColumns+` FROM tax_settings ORDER BY effective_from ASC`); err != nil {
		return nil, fmt.Errorf("%s: list tax settings: %w", s.dialect.Name, err)
	}
	out := make([]*tax.Settings, len(rows))
	for i := range rows {
		out[i] = rows[i].toSettings()
	}
	return out, nil
}

// ==================== Adjustment Store ====================

func (s *Store) CreateAdjustment(ctx context.Context, adj *tax.Adjustment) error {
	_, err := s.exec(ctx, `INSERT INTO tax_rate_adjustments (`+adjustmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		adj.ID, adj.Year,
		adj.PreviousMonthlyRate.String(), adj.NewMonthlyRate.String(),
		adj.PreviousPurchaseRate.String(), adj.NewPurchaseRate.String(),
		adj.Amount.String(), adj.SettingsID, stamp(adj.AppliedAt))
	if s.unique(err) {
		return economy.ErrAlreadyApplied
	}
	return err
}

func (s *Store) GetAdjustment(ctx context.Context, year int) (*tax.Adjustment, error) {
	var r adjustmentRow
	err := s.get(ctx, &r, `SELECT `+adjustmentColumns+` FROM tax_rate_adjustments WHERE adjustment_year = ?`, year)
	if err != nil {
		if s.isNoRows(err) {
			return nil, economy.ErrAdjustmentNotFound
		}
		return nil, err
	}
	return r.toAdjustment(), nil
}

func (s *Store) ListAdjustments(ctx context.Context, limit int) ([]*tax.Adjustment, error) {
	q, args := paginate(`SELECT `+adjustmentColumns+` FROM tax_rate_adjustments ORDER BY adjustment_year DESC`, nil, limit, 0)

	var rows []adjustmentRow
	if err := s.selectAll(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("%s: list adjustments: %w", s.dialect.Name, err)
	}
	out := make([]*tax.Adjustment, len(rows))
	for i := range rows {
		out[i] = rows[i].toAdjustment()
	}
	return out, nil
}
