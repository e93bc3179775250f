package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/types"
)

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

// OpenAccount registers a new account with a zero balance. externalID is
// the caller's handle for the owner and must be unique when set.
func (e *Economy) OpenAccount(ctx context.Context, externalID string, role account.Role) (*account.Account, error) {
	if !role.IsValid() {
		return nil, ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}

	a := &account.Account{
		Entity:     types.NewEntityAt(e.clock.Now()),
		ID:         id.NewAccountID(),
		ExternalID: externalID,
		Role:       role,
		Status:     account.StatusActive,
	}

	if err := e.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}

	e.plugins.EmitAccountOpened(ctx, a)
	e.logger.Debug("account opened", "account_id", a.ID.String(), "role", role)
	return a, nil
}

// GetAccount retrieves an account by ID.
func (e *Economy) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return e.store.GetAccount(ctx, accountID)
}

// GetAccountByExternalID retrieves an account by the caller's handle.
func (e *Economy) GetAccountByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	return e.store.GetAccountByExternalID(ctx, externalID)
}

// ListAccounts lists accounts in creation order.
func (e *Economy) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	return e.store.ListAccounts(ctx, opts)
}

// ListTransactions lists an account's transactions, newest first.
func (e *Economy) ListTransactions(ctx context.Context, accountID id.AccountID, q account.TxQuery) ([]*account.Transaction, error) {
	if _, err := e.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return e.store.ListTransactions(ctx, accountID, q)
}

// DisableAccount soft-disables an account. Its balance and history are
// kept but it no longer accepts credits, debits, or bonuses.
func (e *Economy) DisableAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return e.setStatus(ctx, accountID, account.StatusDisabled)
}

// EnableAccount re-activates a disabled account.
func (e *Economy) EnableAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return e.setStatus(ctx, accountID, account.StatusActive)
}

func (e *Economy) setStatus(ctx context.Context, accountID id.AccountID, status account.Status) (*account.Account, error) {
	var updated *account.Account
	_, err := e.atomically(ctx, []string{accountKey(accountID)}, func(ctx context.Context, tx store.Store, _ *effects) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if a.Status == status {
			updated = a
			return nil
		}
		a.Status = status
		a.TouchAt(e.clock.Now())
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitAccountStatusChanged(ctx, updated)
	return updated, nil
}

// ──────────────────────────────────────────────────
// Balance ledger
// ──────────────────────────────────────────────────

// BalanceOf returns an account's current balance.
func (e *Economy) BalanceOf(ctx context.Context, accountID id.AccountID) (int64, error) {
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// CreditAccount adds amount points to an account and records a transaction
// of the given kind.
func (e *Economy) CreditAccount(ctx context.Context, accountID id.AccountID, amount int64, kind account.Kind) (*account.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return e.postSingle(ctx, accountID, amount, kind)
}

// DebitAccount removes amount points from an account. It fails with
// ErrInsufficientBalance if amount exceeds the balance.
func (e *Economy) DebitAccount(ctx context.Context, accountID id.AccountID, amount int64, kind account.Kind) (*account.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return e.postSingle(ctx, accountID, -amount, kind)
}

// Burn permanently removes points from an account's balance.
func (e *Economy) Burn(ctx context.Context, accountID id.AccountID, amount int64) (*account.Transaction, error) {
	return e.DebitAccount(ctx, accountID, amount, account.KindBurn)
}

// Transfer moves points between two accounts as a paired fund-transfer
// debit and credit in one unit of work.
func (e *Economy) Transfer(ctx context.Context, from, to id.AccountID, amount int64) ([]*account.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if from.String() == to.String() {
		return nil, ValidationError{Field: "to", Message: "cannot transfer to the same account"}
	}

	now := e.clock.Now()
	fx, err := e.atomically(ctx, []string{accountKey(from), accountKey(to)}, func(ctx context.Context, tx store.Store, fx *effects) error {
		src, err := e.loadActive(ctx, tx, from)
		if err != nil {
			return err
		}
		dst, err := e.loadActive(ctx, tx, to)
		if err != nil {
			return err
		}

		debit, err := e.post(ctx, tx, src, -amount, account.KindFundTransfer, "", now, fx)
		if err != nil {
			return err
		}
		if _, err := e.post(ctx, tx, dst, amount, account.KindFundTransfer, debit.ID.String(), now, fx); err != nil {
			return err
		}

		if err := e.checkAccount(ctx, tx, src); err != nil {
			return err
		}
		return e.checkAccount(ctx, tx, dst)
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, fx)
	return fx.txs, nil
}

func (e *Economy) postSingle(ctx context.Context, accountID id.AccountID, amount int64, kind account.Kind) (*account.Transaction, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	now := e.clock.Now()
	fx, err := e.atomically(ctx, []string{accountKey(accountID)}, func(ctx context.Context, tx store.Store, fx *effects) error {
		a, err := e.loadActive(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if _, err := e.post(ctx, tx, a, amount, kind, "", now, fx); err != nil {
			return err
		}
		return e.checkAccount(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, fx)
	return fx.txs[0], nil
}

// ──────────────────────────────────────────────────
// In-transaction helpers
// ──────────────────────────────────────────────────

// loadActive reads an account inside tx and rejects disabled accounts.
func (e *Economy) loadActive(ctx context.Context, tx store.Store, accountID id.AccountID) (*account.Account, error) {
	a, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive() {
		return nil, fmt.Errorf("%w: %s", ErrAccountDisabled, accountID)
	}
	return a, nil
}

// post appends a signed transaction and applies it to a's balance. a is
// updated in place so several posts to the same account compose.
func (e *Economy) post(ctx context.Context, tx store.Store, a *account.Account, amount int64, kind account.Kind, ref string, now time.Time, fx *effects) (*account.Transaction, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	balance := a.Balance + amount
	if amount > 0 && balance < a.Balance {
		return nil, fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	if balance < 0 {
		return nil, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientBalance, a.Balance, -amount)
	}

	t := &account.Transaction{
		ID:        id.NewTransactionID(),
		AccountID: a.ID,
		Amount:    amount,
		Kind:      kind,
		Reference: ref,
		CreatedAt: now.UTC(),
	}
	if err := tx.AppendTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	a.Balance = balance
	a.TouchAt(now)
	if err := tx.UpdateAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	fx.txs = append(fx.txs, t)
	return t, nil
}

// checkAccount verifies that a's balance is non-negative and, in strict
// mode, equal to the sum of its transactions.
func (e *Economy) checkAccount(ctx context.Context, tx store.Store, a *account.Account) error {
	if a.Balance < 0 {
		return fmt.Errorf("%w: account %s balance %d is negative", ErrInconsistentState, a.ID, a.Balance)
	}
	if !e.strictInvariants {
		return nil
	}

	sum, err := tx.SumTransactions(ctx, account.SumQuery{AccountID: a.ID})
	if err != nil {
		return err
	}
	if sum != a.Balance {
		return fmt.Errorf("%w: account %s balance %d, transactions sum to %d", ErrInconsistentState, a.ID, a.Balance, sum)
	}
	return nil
}

func isInconsistent(err error) bool {
	return errors.Is(err, ErrInconsistentState)
}
