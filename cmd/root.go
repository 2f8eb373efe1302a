package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/staffline/boond-sync/internal/config"
)

var cfg *config.Config

var (
	envFlag    string
	outputFlag string
)

var rootCmd = &cobra.Command{
	Use:   "boond-sync",
	Short: "BoondManager production to sandbox reconciliation",
	Long:  "Reads candidates, resources, projects and resumes from BoondManager, reports data quality and replicates production into the sandbox environment.",
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
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "", "environment: production or sandbox (default from config)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "json", "output format: json or yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
