package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/economy/job"
)

// jobRunner picks the engine method a job command triggers.
type jobRunner func(a *app) func(ctx context.Context, now time.Time) (*job.Report, error)

func newJobCommand(configPath *string, use, short string, pick jobRunner) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, *configPath, false)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.start(ctx); err != nil {
				return err
			}

			now := a.engine.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			report, runErr := pick(a)(ctx, now)
			if report != nil {
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "evaluate the job at this RFC 3339 time instead of now")

	return cmd
}

func newSeedCommand(configPath *string) *cobra.Command {
	return newJobCommand(configPath, "seed", "Seed the funds for the current fiscal year",
		func(a *app) func(context.Context, time.Time) (*job.Report, error) { return a.engine.RunFiscalYearJob })
}

func newBonusCommand(configPath *string) *cobra.Command {
	return newJobCommand(configPath, "bonus", "Run the weekly bonus job once",
		func(a *app) func(context.Context, time.Time) (*job.Report, error) { return a.engine.RunWeeklyBonusJob })
}

func newAdjustCommand(configPath *string) *cobra.Command {
	return newJobCommand(configPath, "adjust", "Run the annual tax rate adjustment once",
		func(a *app) func(context.Context, time.Time) (*job.Report, error) { return a.engine.RunAnnualAdjustmentJob })
}
