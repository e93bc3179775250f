package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/economy/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "economy",
		Short:   "Points economy ledger server and operator tools",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $ECONOMY_CONFIG or ./economy.toml)")

	rootCmd.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
		newSeedCommand(&configPath),
		newBonusCommand(&configPath),
		newAdjustCommand(&configPath),
		newStatsCommand(&configPath),
		newVerifyCommand(&configPath),
	)

	return rootCmd
}
