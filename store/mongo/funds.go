package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/economy"
	"github.com/xraph/economy/fund"
)

// ==================== Fund Store ====================

// Funds keep one document per (type, fiscal year). Reads return the latest
// year.

func (s *Store) CreateFund(ctx context.Context, f *fund.Fund) error {
	latest, err := s.GetFund(ctx, f.Type)
	switch {
	case err == nil && latest.FiscalYear >= f.FiscalYear:
		return economy.ErrAlreadyExists
	case err != nil && !errors.Is(err, economy.ErrFundNotFound):
		return err
	}

	if _, err := s.col(colFunds).InsertOne(ctx, toFundModel(f)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return economy.ErrAlreadyExists
		}
		return fmt.Errorf("economy/mongo: create fund: %w", err)
	}
	return nil
}

func (s *Store) GetFund(ctx context.Context, fundType fund.Type) (*fund.Fund, error) {
	var m fundModel
	err := s.col(colFunds).FindOne(ctx,
		bson.M{"fund_type": string(fundType)},
		options.FindOne().SetSort(bson.D{{Key: "fiscal_year", Value: -1}}),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, economy.ErrFundNotFound
		}
		return nil, fmt.Errorf("economy/mongo: get fund: %w", err)
	}
	return fromFundModel(&m)
}

func (s *Store) UpdateFund(ctx context.Context, f *fund.Fund) error {
	res, err := s.col(colFunds).UpdateOne(ctx, bson.M{"_id": f.ID.String()}, bson.M{"$set": bson.M{
		"allocated_amount": f.Allocated,
		"remaining_amount": f.Remaining,
		"inflow_amount":    f.Inflow,
		"updated_at":       f.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("economy/mongo: update fund: %w", err)
	}
	if res.MatchedCount == 0 {
		return economy.ErrFundNotFound
	}
	return nil
}

func (s *Store) ListFunds(ctx context.Context) ([]*fund.Fund, error) {
	out := make([]*fund.Fund, 0, len(fund.Types()))
	for _, t := range fund.Types() {
		f, err := s.GetFund(ctx, t)
		if err != nil {
			if errors.Is(err, economy.ErrFundNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
