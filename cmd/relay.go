package cmd

import (
	"context"
	"errors"
	"fmt"

	"outreach/pkg/relay"

	"github.com/spf13/cobra"
)

var (
	verifyFrom     string
	testFrom       string
	testRecipients []string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the relay accepts the sender credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("cmd.verify")
		if err != nil {
			return err
		}

		cred, err := resolveCredential(cfg.Relay, verifyFrom)
		if err != nil {
			return err
		}

		transport := relay.New(cfg.Relay)
		if err := transport.VerifyCredentials(context.Background(), cred); err != nil {
			log.Error("Relay credentials rejected", "relay", transport.Endpoint(), "sender", cred.String(), "error", err)
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "credentials for %s accepted by %s\n", cred.Address, transport.Endpoint())
		return err
	},
}

var testEmailCmd = &cobra.Command{
	Use:   "test-email",
	Short: "Send a fixed test email to each recipient",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("cmd.test_email")
		if err != nil {
			return err
		}

		recipients := parseRecipients(testRecipients)
		if len(recipients) == 0 {
			return errors.New("at least one recipient is required: pass --to")
		}

		cred, err := resolveCredential(cfg.Relay, testFrom)
		if err != nil {
			return err
		}

		transport := relay.New(cfg.Relay)
		ctx := context.Background()
		failed := 0
		for _, recipient := range recipients {
			if err := transport.SendTestMessage(ctx, cred, recipient); err != nil {
				failed++
				log.Error("Test email failed", "recipient", recipient, "error", err)
				fmt.Fprintf(cmd.OutOrStdout(), "FAILED %s: %v\n", recipient, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SENT   %s\n", recipient)
		}

		if failed > 0 {
			return fmt.Errorf("%w: %d of %d", errDeliveryFailures, failed, len(recipients))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyFrom, "from", "", "sender address (default: relay.address_env)")

	rootCmd.AddCommand(testEmailCmd)
	testEmailCmd.Flags().StringArrayVarP(&testRecipients, "to", "t", nil, "recipient address, repeatable or comma-separated")
	testEmailCmd.Flags().StringVar(&testFrom, "from", "", "sender address (default: relay.address_env)")
}
