package cmd

import (
	"context"
	"fmt"

	"outreach/pkg/compose"
	"outreach/pkg/provider"
	"outreach/pkg/ui/report"

	"github.com/spf13/cobra"
)

var previewInputs emailFlags

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Generate an outreach email without sending it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("cmd.preview")
		if err != nil {
			return err
		}

		req, err := previewInputs.request()
		if err != nil {
			return err
		}

		client, err := provider.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize provider: %w", err)
		}

		msg, err := compose.NewGenerator(client, cfg.Generation).Generate(context.Background(), req)
		if err != nil {
			log.Error("Email generation failed", "error", err)
			return err
		}

		if previewInputs.jsonOutput {
			return report.JSON(cmd.OutOrStdout(), msg)
		}
		return report.Message(cmd.OutOrStdout(), msg)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewInputs.bind(previewCmd)
}
