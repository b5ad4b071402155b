package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vaibhavmahiwal/medverify/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "medverify",
	Short: "Medical claim credibility verifier",
	Long:  "Verifies medical claims and article URLs against current scientific consensus using search-grounded AI judgment, source trust rating, and linguistic style analysis.",
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
