// Package mongo provides a store.Store backed by MongoDB through grove's
// mongo driver. RunInTx uses multi-document transactions, so the server
// must run as a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/economy"
	"github.com/xraph/economy/store"
)

// Collection name constants.
const (
	colAccounts     = "accounts"
	colTransactions = "transactions"
	colFunds        = "economy_funds"
	colTaxSettings  = "tax_settings"
	colAdjustments  = "tax_rate_adjustments"
)

// DefaultDatabase is used when Open is given no database name.
const DefaultDatabase = "economy"

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using grove's MongoDB driver.
type Store struct {
	db   *grove.DB
	mdb  *mongodriver.MongoDB
	seq  *atomic.Int64
	inTx bool
}

// Open connects to uri and returns a store using database (DefaultDatabase
// if empty).
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri, mongodriver.WithDatabase(database)); err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("economy/mongo: connect: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("economy/mongo: open grove: %w", err)
	}
	return New(db), nil
}

// New wraps a grove database whose driver is MongoDB.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
		seq: &atomic.Int64{},
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

func (s *Store) col(name string) *mongo.Collection { return s.mdb.Collection(name) }

// Migrate creates the economy indexes through the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.mdb)
	if err != nil {
		return fmt.Errorf("%w: economy/mongo: create migration executor: %v", economy.ErrMigrationFailed, err)
	}
	if _, err := migrate.NewOrchestrator(executor, Migrations).Migrate(ctx); err != nil {
		return fmt.Errorf("%w: economy/mongo: %v", economy.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInTx runs fn inside a session transaction. The driver retries fn on
// transient transaction errors, so fn must be safe to run more than once.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	sess, err := s.mdb.Client().StartSession()
	if err != nil {
		return fmt.Errorf("economy/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	child := &Store{db: s.db, mdb: s.mdb, seq: s.seq, inTx: true}
	_, err = sess.WithTransaction(ctx, func(sctx context.Context) (any, error) {
		return nil, fn(sctx, child)
	})
	return err
}

// nextSeq orders transactions written within the same millisecond, the
// resolution of BSON datetimes.
func (s *Store) nextSeq() int64 {
	for {
		last := s.seq.Load()
		next := max(last+1, time.Now().UnixNano())
		if s.seq.CompareAndSwap(last, next) {
			return next
		}
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all economy collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{
				Keys:    bson.D{{Key: "external_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"external_id": bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "reference", Value: 1}}},
		},
		colFunds: {
			{
				Keys:    bson.D{{Key: "fund_type", Value: 1}, {Key: "fiscal_year", Value: -1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colTaxSettings: {
			{
				Keys:    bson.D{{Key: "is_active", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"is_active": true}),
			},
			{Keys: bson.D{{Key: "effective_from", Value: -1}}},
		},
		colAdjustments: {
			{
				Keys:    bson.D{{Key: "adjustment_year", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
