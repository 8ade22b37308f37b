package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfence-jp/skyfence/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "skyfence",
	Short: "Drone-flight geofencing and mesh-grid toolkit",
	Long:  "Classifies points, paths and survey areas against restricted-flight zones (DID, airports, no-fly zones) and converts coordinates to/from the Japan standard area mesh used for weather lookups.",
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
