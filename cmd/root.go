package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "odcv",
	Short: "Rank NYC office buildings for occupancy-driven ventilation control",
	Long: "Merges PLUTO parcels with LL84 benchmarking, LL87 audits and LL33 grades into building profiles, " +
		"scores each profile's ODCV opportunity and serves lookups, search and rankings.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
