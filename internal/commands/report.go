package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/economy/types"
)

func newStatsCommand(configPath *string) *cobra.Command {
	var window string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print economy statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := types.ParseWindowKind(window)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, *configPath, false)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.start(ctx); err != nil {
				return err
			}

			stats, err := a.engine.GetStats(ctx, kind, a.engine.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", string(types.WindowAll), "reporting window: all, day, week, month or year")

	return cmd
}

func newVerifyCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check balances, funds and tax settings for consistency",
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

			if err := a.engine.VerifyInvariants(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}
