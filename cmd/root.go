/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"outreach/pkg/config"
	"outreach/pkg/logger"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Write and send job outreach emails",
	Long: `Reads a resume, asks a language model to write an outreach email for a job
description, and sends it through an SMTP relay to every recipient, reporting
one outcome per recipient.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: OUTREACH_CONFIG, ./config.json, ./config.yaml)")
}

// loadRuntime loads configuration and installs the process logger.
func loadRuntime(component string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging, configuredSecrets(cfg)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	return cfg, slog.Default().With("component", component), nil
}

// configuredSecrets returns the secret values named by env settings so the
// logger can scrub them from every record.
func configuredSecrets(cfg *config.Config) []string {
	envNames := []string{
		cfg.Relay.SecretEnv,
		cfg.Providers.OpenAI.APIKeyEnv,
		cfg.Providers.Groq.APIKeyEnv,
		cfg.Providers.Gemini.APIKeyEnv,
		cfg.Providers.OpenCode.PasswordEnv,
		"OPENAI_API_KEY",
		"GROQ_API_KEY",
		"GEMINI_API_KEY",
		"GOOGLE_API_KEY",
	}

	secrets := make([]string, 0, len(envNames))
	for _, name := range envNames {
		if name == "" {
			continue
		}
		if value := os.Getenv(name); value != "" {
			secrets = append(secrets, value)
		}
	}
	return secrets
}
