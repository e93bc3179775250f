package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/economy"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/tax"
)

// ==================== Tax Settings Store ====================

func (s *Store) CreateTaxSettings(ctx context.Context, t *tax.Settings) error {
	if _, err := s.col(colTaxSettings).InsertOne(ctx, toSettingsModel(t)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return economy.ErrAlreadyExists
		}
		return fmt.Errorf("economy/mongo: create tax settings: %w", err)
	}
	return nil
}

func (s *Store) GetActiveTaxSettings(ctx context.Context) (*tax.Settings, error) {
	var m settingsModel
	if err := s.col(colTaxSettings).FindOne(ctx, bson.M{"is_active": true}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, economy.ErrNoActiveTaxSettings
		}
		return nil, fmt.Errorf("economy/mongo: get active tax settings: %w", err)
	}
	return fromSettingsModel(&m)
}

func (s *Store) GetTaxSettingsAt(ctx context.Context, at time.Time) (*tax.Settings, error) {
	var m settingsModel
	err := s.col(colTaxSettings).FindOne(ctx,
		bson.M{"effective_from": bson.M{"$lte": at.UTC()}},
		options.FindOne().SetSort(bson.D{{Key: "effective_from", Value: -1}}),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return s.GetActiveTaxSettings(ctx)
		}
		return nil, fmt.Errorf("economy/mongo: get tax settings at: %w", err)
	}
	return fromSettingsModel(&m)
}

func (s *Store) DeactivateTaxSettings(ctx context.Context, settingsID id.TaxSettingsID) error {
	res, err := s.col(colTaxSettings).UpdateOne(ctx,
		bson.M{"_id": settingsID.String()},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("economy/mongo: deactivate tax settings: %w", err)
	}
	if res.MatchedCount == 0 {
		return economy.ErrNoActiveTaxSettings
	}
	return nil
}

func (s *Store) ListTaxSettings(ctx context.Context) ([]*tax.Settings, error) {
	cursor, err := s.col(colTaxSettings).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "effective_from", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("economy/mongo: list tax settings: %w", err)
	}
	var models []settingsModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("economy/mongo: list tax settings: %w", err)
	}

	out := make([]*tax.Settings, 0, len(models))
	for i := range models {
		st, err := fromSettingsModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// ==================== Adjustment Store ====================

func (s *Store) CreateAdjustment(ctx context.Context, adj *tax.Adjustment) error {
	if _, err := s.col(colAdjustments).InsertOne(ctx, toAdjustmentModel(adj)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return economy.ErrAlreadyApplied
		}
		return fmt.Errorf("economy/mongo: create adjustment: %w", err)
	}
	return nil
}

func (s *Store) GetAdjustment(ctx context.Context, year int) (*tax.Adjustment, error) {
	var m adjustmentModel
	if err := s.col(colAdjustments).FindOne(ctx, bson.M{"adjustment_year": year}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, economy.ErrAdjustmentNotFound
		}
		return nil, fmt.Errorf("economy/mongo: get adjustment: %w", err)
	}
	return fromAdjustmentModel(&m)
}

func (s *Store) ListAdjustments(ctx context.Context, limit int) ([]*tax.Adjustment, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "adjustment_year", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.col(colAdjustments).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("economy/mongo: list adjustments: %w", err)
	}
	var models []adjustmentModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("economy/mongo: list adjustments: %w", err)
	}

	out := make([]*tax.Adjustment, 0, len(models))
	for i := range models {
		adj, err := fromAdjustmentModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, adj)
	}
	return out, nil
}
