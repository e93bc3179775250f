package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/id"
)

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	r := toAccountRow(a)
	_, err := s.exec(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ExternalID, r.Role, r.Status, r.Balance, r.LastWeeklyBonusAt, r.TaxExemptUntil, r.CreatedAt, r.UpdatedAt)
	if s.unique(err) {
		return economy.ErrAccountExists
	}
	return err
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	var r accountRow
	err := s.get(ctx, &r, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`+s.lock(), accountID)
	if err != nil {
		if s.isNoRows(err) {
			return nil, economy.ErrAccountNotFound
		}
		return nil, err
	}
	return r.toAccount(), nil
}

func (s *Store) GetAccountByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	var r accountRow
	err := s.get(ctx, &r, `SELECT `+accountColumns+` FROM accounts WHERE external_id = ?`+s.lock(), externalID)
	if err != nil {
		if s.isNoRows(err) {
			return nil, economy.ErrAccountNotFound
		}
		return nil, err
	}
	return r.toAccount(), nil
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	r := toAccountRow(a)
	return s.execOne(ctx, economy.ErrAccountNotFound, `
UPDATE accounts SET role = ?, status = ?, balance = ?, last_weekly_bonus_at = ?, tax_exempt_until = ?, updated_at = ?
WHERE id = ?`,
		r.Role, r.Status, r.Balance, r.LastWeeklyBonusAt, r.TaxExemptUntil, r.UpdatedAt, r.ID)
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	where, args := accountFilter(opts.Role, opts.Status, opts.After)
	q := `SELECT ` + accountColumns + ` FROM accounts` + where + ` ORDER BY created_at ASC, id ASC`
	q, args = paginate(q, args, opts.Limit, opts.Offset)

	var rows []accountRow
	if err := s.selectAll(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("%s: list accounts: %w", s.dialect.Name, err)
	}

	out := make([]*account.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].toAccount()
	}
	return out, nil
}

func (s *Store) CountAccounts(ctx context.Context, opts account.CountOpts) (int64, error) {
	where, args := accountFilter(opts.Role, opts.Status, nil)
	var n int64
	if err := s.get(ctx, &n, `SELECT COUNT(*) FROM accounts`+where, args...); err != nil {
		return 0, fmt.Errorf("%s: count accounts: %w", s.dialect.Name, err)
	}
	return n, nil
}

func accountFilter(role account.Role, status account.Status, after *account.Cursor) (string, []any) {
	var conds []string
	var args []any
	if role != "" {
		conds = append(conds, "role = ?")
		args = append(args, string(role))
	}
	if status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(status))
	}
	if after != nil {
		at := timestamp{after.CreatedAt}
		conds = append(conds, "(created_at > ? OR (created_at = ? AND id > ?))")
		args = append(args, at, at, after.ID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func paginate(q string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			q += " OFFSET ?"
			args = append(args, offset)
		}
	}
	return q, args
}

// ==================== Transaction Store ====================

func (s *Store) AppendTransaction(ctx context.Context, tx *account.Transaction) error {
	_, err := s.exec(ctx, `INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.AccountID, tx.Amount, string(tx.Kind), tx.Reference, stamp(tx.CreatedAt))
	if s.unique(err) {
		return economy.ErrAlreadyExists
	}
	return err
}

func (s *Store) ListTransactions(ctx context.Context, accountID id.AccountID, q account.TxQuery) ([]*account.Transaction, error) {
	where, args, err := txFilter(account.SumQuery{AccountID: accountID, Kinds: q.Kinds, Window: q.Window})
	if err != nil {
		return nil, err
	}
	// seq breaks ties between rows written in the same instant.
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY created_at DESC, seq DESC`
	query, args = paginate(query, args, q.Limit, q.Offset)

	var rows []transactionRow
	if err := s.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: list transactions: %w", s.dialect.Name, err)
	}

	out := make([]*account.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toTransaction()
	}
	return out, nil
}

func (s *Store) SumTransactions(ctx context.Context, q account.SumQuery) (int64, error) {
	where, args, err := txFilter(q)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := s.get(ctx, &sum, `SELECT COALESCE(SUM(amount), 0) FROM transactions`+where, args...); err != nil {
		return 0, fmt.Errorf("%s: sum transactions: %w", s.dialect.Name, err)
	}
	return sum, nil
}

func (s *Store) HasReference(ctx context.Context, kind account.Kind, reference string) (bool, error) {
	var n int64
	err := s.get(ctx, &n, `SELECT COUNT(*) FROM transactions WHERE kind = ? AND reference = ?`, string(kind), reference)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func txFilter(q account.SumQuery) (string, []any, error) {
	var conds []string
	var args []any

	if !q.AccountID.IsNil() {
		conds = append(conds, "account_id = ?")
		args = append(args, q.AccountID)
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = string(k)
		}
		in, inArgs, err := sqlx.In("kind IN (?)", kinds)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, in)
		args = append(args, inArgs...)
	}
	if q.ReferencePrefix != "" {
		conds = append(conds, "reference LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(q.ReferencePrefix)+"%")
	}
	if !q.Window.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, stamp(q.Window.Since))
	}
	if !q.Window.Until.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, stamp(q.Window.Until))
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
