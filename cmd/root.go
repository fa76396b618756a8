package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/open-collect/numisync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "numisync",
	Short: "Reconcile a local coin collection against the Numista catalog",
	Long:  "Matches local collection records to catalog types, disambiguates year/mint issues, and merges authoritative catalog data without touching collector edits.",
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
