// Package memory provides an in-process store.Store backed by maps. It is
// meant for tests and single-process deployments; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/tax"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is an in-memory store.Store.
//
// Transactions take the write lock for their whole duration and keep an
// undo journal, so readers never observe a half-applied unit and a failed
// unit leaves no trace.
type Store struct {
	conn
	mu sync.RWMutex
}

func New() *Store {
	s := &Store{}
	s.conn = conn{st: newState()}
	s.conn.mu = &s.mu
	return s
}

// conn is the implementation shared by the root store and its transactions.
// Inside a transaction mu is nil (the lock is already held) and undo
// collects compensating actions.
type conn struct {
	st   *state
	mu   *sync.RWMutex
	undo *[]func()
}

func (c *conn) wlock() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

func (c *conn) rlock() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.RLock()
	return c.mu.RUnlock
}

func (c *conn) record(undo func()) {
	if c.undo != nil && undo != nil {
		*c.undo = append(*c.undo, undo)
	}
}

func (c *conn) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if c.mu == nil {
		return fn(ctx, c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	journal := make([]func(), 0, 8)
	tx := &conn{st: c.st, undo: &journal}

	if err := fn(ctx, tx); err != nil {
		for i := len(journal) - 1; i >= 0; i-- {
			journal[i]()
		}
		return err
	}
	return nil
}

type state struct {
	accounts     map[string]*account.Account
	accountOrder []string
	byExternal   map[string]string
	transactions []*account.Transaction
	funds        map[fund.Type]*fund.Fund
	settings     []*tax.Settings
	adjustments  map[int]*tax.Adjustment
}

func newState() *state {
	return &state{
		accounts:     make(map[string]*account.Account),
		accountOrder: make([]string, 0),
		byExternal:   make(map[string]string),
		transactions: make([]*account.Transaction, 0),
		funds:        make(map[fund.Type]*fund.Fund),
		settings:     make([]*tax.Settings, 0),
		adjustments:  make(map[int]*tax.Adjustment),
	}
}

// Store management
func (c *conn) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (c *conn) Ping(_ context.Context) error {
	return nil // Always available
}

func (c *conn) Close() error {
	return nil // Nothing to close
}

func paginate[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
