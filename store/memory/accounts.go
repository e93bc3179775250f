package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/id"
)

// Account Store implementation
func (c *conn) CreateAccount(_ context.Context, a *account.Account) error {
	defer c.wlock()()

	key, ext := a.ID.String(), a.ExternalID
	if _, exists := c.st.accounts[key]; exists {
		return economy.ErrAccountExists
	}
	if ext != "" {
		if _, exists := c.st.byExternal[ext]; exists {
			return economy.ErrAccountExists
		}
		c.st.byExternal[ext] = key
	}

	cp := *a
	c.st.accounts[key] = &cp
	c.st.accountOrder = append(c.st.accountOrder, key)

	n := len(c.st.accountOrder) - 1
	c.record(func() {
		delete(c.st.accounts, key)
		if ext != "" {
			delete(c.st.byExternal, ext)
		}
		c.st.accountOrder = c.st.accountOrder[:n]
	})
	return nil
}

func (c *conn) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	defer c.rlock()()

	a, ok := c.st.accounts[accountID.String()]
	if !ok {
		return nil, economy.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (c *conn) GetAccountByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	unlock := c.rlock()
	key, ok := c.st.byExternal[externalID]
	unlock()

	if !ok {
		return nil, economy.ErrAccountNotFound
	}
	return c.GetAccount(ctx, id.MustParse(key))
}

func (c *conn) UpdateAccount(_ context.Context, a *account.Account) error {
	defer c.wlock()()

	key := a.ID.String()
	prev, ok := c.st.accounts[key]
	if !ok {
		return economy.ErrAccountNotFound
	}

	cp := *a
	c.st.accounts[key] = &cp
	c.record(func() { c.st.accounts[key] = prev })
	return nil
}

func (c *conn) ListAccounts(_ context.Context, opts account.ListOpts) ([]*account.Account, error) {
	defer c.rlock()()

	result := make([]*account.Account, 0)
	for _, key := range c.st.accountOrder {
		a := c.st.accounts[key]
		if opts.Role != "" && a.Role != opts.Role {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		if opts.After != nil && opts.After.Before(a) {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	slices.SortStableFunc(result, func(a, b *account.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (c *conn) CountAccounts(_ context.Context, opts account.CountOpts) (int64, error) {
	defer c.rlock()()

	var n int64
	for _, a := range c.st.accounts {
		if opts.Role != "" && a.Role != opts.Role {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		n++
	}
	return n, nil
}

// Transaction Store implementation
func (c *conn) AppendTransaction(_ context.Context, tx *account.Transaction) error {
	defer c.wlock()()

	if _, ok := c.st.accounts[tx.AccountID.String()]; !ok {
		return economy.ErrAccountNotFound
	}

	cp := *tx
	n := len(c.st.transactions)
	c.st.transactions = append(c.st.transactions, &cp)
	c.record(func() { c.st.transactions = c.st.transactions[:n] })
	return nil
}

func (c *conn) ListTransactions(_ context.Context, accountID id.AccountID, q account.TxQuery) ([]*account.Transaction, error) {
	defer c.rlock()()

	sel := account.SumQuery{AccountID: accountID, Kinds: q.Kinds, Window: q.Window}
	result := make([]*account.Transaction, 0)
	// Newest first.
	for i := len(c.st.transactions) - 1; i >= 0; i-- {
		tx := c.st.transactions[i]
		if !sel.Matches(tx) {
			continue
		}
		cp := *tx
		result = append(result, &cp)
	}

	return paginate(result, q.Offset, q.Limit), nil
}

func (c *conn) SumTransactions(_ context.Context, q account.SumQuery) (int64, error) {
	defer c.rlock()()

	var sum int64
	for _, tx := range c.st.transactions {
		if q.Matches(tx) {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (c *conn) HasReference(_ context.Context, kind account.Kind, reference string) (bool, error) {
	defer c.rlock()()

	found := slices.ContainsFunc(c.st.transactions, func(tx *account.Transaction) bool {
		return tx.Kind == kind && tx.Reference == reference
	})
	return found, nil
}
