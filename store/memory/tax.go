package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xraph/economy"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/tax"
)

// Tax settings Store implementation
func (c *conn) CreateTaxSettings(_ context.Context, s *tax.Settings) error {
	defer c.wlock()()

	if s.IsActive {
		for _, existing := range c.st.settings {
			if existing.IsActive {
				return economy.ErrAlreadyExists
			}
		}
	}

	cp := *s
	n := len(c.st.settings)
	c.st.settings = append(c.st.settings, &cp)
	c.record(func() { c.st.settings = c.st.settings[:n] })
	return nil
}

func (c *conn) GetActiveTaxSettings(_ context.Context) (*tax.Settings, error) {
	defer c.rlock()()

	for _, s := range c.st.settings {
		if s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, economy.ErrNoActiveTaxSettings
}

func (c *conn) GetTaxSettingsAt(ctx context.Context, at time.Time) (*tax.Settings, error) {
	unlock := c.rlock()
	var best *tax.Settings
	for _, s := range c.st.settings {
		if s.EffectiveFrom.After(at) {
			continue
		}
		if best == nil || s.EffectiveFrom.After(best.EffectiveFrom) {
			best = s
		}
	}
	unlock()

	if best == nil {
		return c.GetActiveTaxSettings(ctx)
	}
	cp := *best
	return &cp, nil
}

func (c *conn) DeactivateTaxSettings(_ context.Context, settingsID id.TaxSettingsID) error {
	defer c.wlock()()

	for _, s := range c.st.settings {
		if s.ID.String() != settingsID.String() {
			continue
		}
		prev := *s
		s.IsActive = false
		target := s
		c.record(func() { *target = prev })
		return nil
	}
	return economy.ErrNoActiveTaxSettings
}

func (c *conn) ListTaxSettings(_ context.Context) ([]*tax.Settings, error) {
	defer c.rlock()()

	result := make([]*tax.Settings, 0, len(c.st.settings))
	for _, s := range c.st.settings {
		cp := *s
		result = append(result, &cp)
	}
	return result, nil
}

// Adjustment Store implementation
func (c *conn) CreateAdjustment(_ context.Context, adj *tax.Adjustment) error {
	defer c.wlock()()

	year := adj.Year
	if _, exists := c.st.adjustments[year]; exists {
		return economy.ErrAlreadyApplied
	}

	cp := *adj
	c.st.adjustments[year] = &cp
	c.record(func() { delete(c.st.adjustments, year) })
	return nil
}

func (c *conn) GetAdjustment(_ context.Context, year int) (*tax.Adjustment, error) {
	defer c.rlock()()

	adj, ok := c.st.adjustments[year]
	if !ok {
		return nil, economy.ErrAdjustmentNotFound
	}
	cp := *adj
	return &cp, nil
}

func (c *conn) ListAdjustments(_ context.Context, limit int) ([]*tax.Adjustment, error) {
	defer c.rlock()()

	result := make([]*tax.Adjustment, 0, len(c.st.adjustments))
	for _, adj := range c.st.adjustments {
		cp := *adj
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Year > result[j].Year })

	return paginate(result, 0, limit), nil
}
