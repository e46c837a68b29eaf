package cmd

import (
	"context"
	"fmt"

	"outreach/pkg/provider"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured completion provider is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("cmd.check")
		if err != nil {
			return err
		}

		client, err := provider.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize provider: %w", err)
		}

		if err := client.Health(context.Background()); err != nil {
			log.Error("Provider health check failed", "provider", cfg.Generation.Provider, "error", err)
			return fmt.Errorf("provider health check failed: %w", err)
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "provider %s ready (model %s)\n", cfg.Generation.Provider, cfg.Generation.Model)
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
