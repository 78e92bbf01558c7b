package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kommo-bridge/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "kommo-bridge",
	Short: "Kommo webhook translation service",
	Long:  "Receives Kommo CRM webhooks, enriches partial leads over the Kommo API, and translates custom fields through the business dictionaries into flat, readable attributes.",
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
