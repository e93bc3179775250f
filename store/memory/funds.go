package memory

import (
	"context"

	"github.com/xraph/economy"
	"github.com/xraph/economy/fund"
)

// Fund Store implementation
func (c *conn) CreateFund(_ context.Context, f *fund.Fund) error {
	defer c.wlock()()

	ft := f.Type
	prev, existed := c.st.funds[ft]
	if existed && prev.FiscalYear >= f.FiscalYear {
		return economy.ErrAlreadyExists
	}

	cp := *f
	c.st.funds[ft] = &cp
	c.record(func() {
		if existed {
			c.st.funds[ft] = prev
			return
		}
		delete(c.st.funds, ft)
	})
	return nil
}

func (c *conn) GetFund(_ context.Context, fundType fund.Type) (*fund.Fund, error) {
	defer c.rlock()()

	f, ok := c.st.funds[fundType]
	if !ok {
		return nil, economy.ErrFundNotFound
	}
	cp := *f
	return &cp, nil
}

func (c *conn) UpdateFund(_ context.Context, f *fund.Fund) error {
	defer c.wlock()()

	ft := f.Type
	prev, ok := c.st.funds[ft]
	if !ok {
		return economy.ErrFundNotFound
	}

	cp := *f
	c.st.funds[ft] = &cp
	c.record(func() { c.st.funds[ft] = prev })
	return nil
}

func (c *conn) ListFunds(_ context.Context) ([]*fund.Fund, error) {
	defer c.rlock()()

	result := make([]*fund.Fund, 0, len(c.st.funds))
	for _, t := range fund.Types() {
		if f, ok := c.st.funds[t]; ok {
			cp := *f
			result = append(result, &cp)
		}
	}
	return result, nil
}
