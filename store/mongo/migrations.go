package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove/drivers/mongodriver/mongomigrate"
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the MongoDB indexes.
var Migrations = migrate.NewGroup("economy")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_economy_indexes",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				for col, models := range migrationIndexes() {
					if err := createIndexes(ctx, exec, col, models); err != nil {
						return err
					}
				}
				return nil
			},
		},
		&migrate.Migration{
			Name:    "index_accounts_created",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return createIndexes(ctx, exec, colAccounts, []mongo.IndexModel{
					{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
				})
			},
		},
	)
}

func createIndexes(ctx context.Context, exec migrate.Executor, col string, models []mongo.IndexModel) error {
	mexec, ok := exec.(*mongomigrate.Executor)
	if !ok {
		return fmt.Errorf("economy/mongo: migration executor is %T, want mongo", exec)
	}
	if _, err := mexec.DB().Collection(col).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("economy/mongo: create %s indexes: %w", col, err)
	}
	return nil
}
