package sqlstore

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Statements returns a migration step that runs each statement in order.
func Statements(stmts ...string) migrate.MigrateFunc {
	return func(ctx context.Context, exec migrate.Executor) error {
		for _, stmt := range stmts {
			if _, err := exec.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
