package mongo

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/id"
)

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	_, err := s.col(colAccounts).InsertOne(ctx, toAccountModel(a))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return economy.ErrAccountExists
		}
		return fmt.Errorf("economy/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return s.findAccount(ctx, bson.M{"_id": accountID.String()})
}

func (s *Store) GetAccountByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	return s.findAccount(ctx, bson.M{"external_id": externalID})
}

func (s *Store) findAccount(ctx context.Context, filter bson.M) (*account.Account, error) {
	var m accountModel
	if err := s.col(colAccounts).FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, economy.ErrAccountNotFound
		}
		return nil, fmt.Errorf("economy/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	res, err := s.col(colAccounts).UpdateOne(ctx, bson.M{"_id": m.ID}, bson.M{"$set": bson.M{
		"role":                 m.Role,
		"status":               m.Status,
		"balance":              m.Balance,
		"last_weekly_bonus_at": m.LastWeeklyBonusAt,
		"tax_exempt_until":     m.TaxExemptUntil,
		"updated_at":           m.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("economy/mongo: update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return economy.ErrAccountNotFound
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
		if opts.Offset > 0 {
			findOpts.SetSkip(int64(opts.Offset))
		}
	}

	cursor, err := s.col(colAccounts).Find(ctx, accountFilter(opts.Role, opts.Status, opts.After), findOpts)
	if err != nil {
		return nil, fmt.Errorf("economy/mongo: list accounts: %w", err)
	}
	var models []accountModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("economy/mongo: list accounts: %w", err)
	}

	out := make([]*account.Account, 0, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) CountAccounts(ctx context.Context, opts account.CountOpts) (int64, error) {
	n, err := s.col(colAccounts).CountDocuments(ctx, accountFilter(opts.Role, opts.Status, nil))
	if err != nil {
		return 0, fmt.Errorf("economy/mongo: count accounts: %w", err)
	}
	return n, nil
}

func accountFilter(role account.Role, status account.Status, after *account.Cursor) bson.M {
	filter := bson.M{}
	if role != "" {
		filter["role"] = string(role)
	}
	if status != "" {
		filter["status"] = string(status)
	}
	if after != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$gt": after.CreatedAt}},
			bson.M{"created_at": after.CreatedAt, "_id": bson.M{"$gt": after.ID.String()}},
		}
	}
	return filter
}

// ==================== Transaction Store ====================

func (s *Store) AppendTransaction(ctx context.Context, tx *account.Transaction) error {
	_, err := s.col(colTransactions).InsertOne(ctx, toTransactionModel(tx, s.nextSeq()))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return economy.ErrAlreadyExists
		}
		return fmt.Errorf("economy/mongo: append transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID id.AccountID, q account.TxQuery) ([]*account.Transaction, error) {
	filter := txFilter(account.SumQuery{AccountID: accountID, Kinds: q.Kinds, Window: q.Window})
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}})
	if q.Limit > 0 {
		findOpts.SetLimit(int64(q.Limit))
		if q.Offset > 0 {
			findOpts.SetSkip(int64(q.Offset))
		}
	}

	cursor, err := s.col(colTransactions).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("economy/mongo: list transactions: %w", err)
	}
	var models []transactionModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("economy/mongo: list transactions: %w", err)
	}

	out := make([]*account.Transaction, 0, len(models))
	for i := range models {
		tx, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) SumTransactions(ctx context.Context, q account.SumQuery) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: txFilter(q)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	}

	cursor, err := s.col(colTransactions).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("economy/mongo: sum transactions: %w", err)
	}
	var result []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("economy/mongo: sum transactions: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func (s *Store) HasReference(ctx context.Context, kind account.Kind, reference string) (bool, error) {
	n, err := s.col(colTransactions).CountDocuments(ctx,
		bson.M{"kind": string(kind), "reference": reference},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("economy/mongo: has reference: %w", err)
	}
	return n > 0, nil
}

func txFilter(q account.SumQuery) bson.M {
	filter := bson.M{}
	if !q.AccountID.IsNil() {
		filter["account_id"] = q.AccountID.String()
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = string(k)
		}
		filter["kind"] = bson.M{"$in": kinds}
	}
	if q.ReferencePrefix != "" {
		filter["reference"] = bson.Regex{Pattern: "^" + regexp.QuoteMeta(q.ReferencePrefix)}
	}

	created := bson.M{}
	if !q.Window.Since.IsZero() {
		created["$gte"] = q.Window.Since.UTC()
	}
	if !q.Window.Until.IsZero() {
		created["$lte"] = q.Window.Until.UTC()
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}
