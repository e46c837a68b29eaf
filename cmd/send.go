package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"outreach/pkg/bus"
	"outreach/pkg/compose"
	"outreach/pkg/outreach"
	"outreach/pkg/provider"
	"outreach/pkg/relay"
	"outreach/pkg/resume"
	"outreach/pkg/ui/report"

	"github.com/spf13/cobra"
)

// emailFlags are the inputs shared by commands that generate an email.
type emailFlags struct {
	resumePath string
	jobText    string
	jobFile    string
	jsonOutput bool
}

func (f *emailFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.resumePath, "resume", "r", "", "resume file (.pdf, .docx or .txt)")
	cmd.Flags().StringVarP(&f.jobText, "job", "j", "", "job description text")
	cmd.Flags().StringVar(&f.jobFile, "job-file", "", "file holding the job description, - for stdin")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("resume")
}

// request reads the resume and job description into a generation request.
func (f *emailFlags) request() (compose.Request, error) {
	profile, err := resume.ReadFile(f.resumePath)
	if err != nil {
		return compose.Request{}, fmt.Errorf("read resume: %w", err)
	}

	job, err := resolveJobDescription(f.jobText, f.jobFile)
	if err != nil {
		return compose.Request{}, err
	}

	return compose.Request{JobDescription: job, CandidateProfile: profile}, nil
}

var (
	sendInputs        emailFlags
	sendRecipients    []string
	sendFrom          string
	sendSharedContent bool
)

var errDeliveryFailures = errors.New("one or more deliveries failed")

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Generate and send an outreach email to every recipient",
	Long: `Generates an outreach email from a resume and job description and sends it to
each recipient through the configured relay. Every recipient gets one outcome;
a failure for one recipient never stops the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("cmd.send")
		if err != nil {
			return err
		}

		recipients := parseRecipients(sendRecipients)
		if len(recipients) == 0 {
			return errors.New("at least one recipient is required: pass --to")
		}

		req, err := sendInputs.request()
		if err != nil {
			return err
		}

		cred, err := resolveCredential(cfg.Relay, sendFrom)
		if err != nil {
			return err
		}

		client, err := provider.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize provider: %w", err)
		}

		transport := relay.New(cfg.Relay)

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eventBus := bus.New()
		// The observer outlives runCtx so canceled outcomes are still logged.
		observerDone := observeDeliveryEvents(eventBus)

		opts := outreach.OptionsFromConfig(cfg)
		if sendSharedContent {
			opts.PersonalizePerRecipient = false
		}
		opts.Events = eventBus

		log.Info("Sending outreach batch",
			"recipients", len(recipients),
			"provider", cfg.Generation.Provider,
			"model", cfg.Generation.Model,
			"relay", transport.Endpoint(),
			"sender", cred.String(),
		)

		orchestrator := outreach.New(compose.NewGenerator(client, cfg.Generation), transport, opts)
		result, err := orchestrator.DeliverToAll(runCtx, req, recipients, cred)
		eventBus.Close()
		<-observerDone
		if dropped := eventBus.Dropped(); dropped > 0 {
			log.Warn("Delivery events dropped", "count", dropped)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if sendInputs.jsonOutput {
			err = report.JSON(out, result)
		} else {
			err = report.Batch(out, result)
		}
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		if result.Failed() > 0 {
			return fmt.Errorf("%w: %d of %d", errDeliveryFailures, result.Failed(), len(result.Outcomes))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendInputs.bind(sendCmd)
	sendCmd.Flags().StringArrayVarP(&sendRecipients, "to", "t", nil, "recipient address, repeatable or comma-separated")
	sendCmd.Flags().StringVar(&sendFrom, "from", "", "sender address (default: relay.address_env)")
	sendCmd.Flags().BoolVar(&sendSharedContent, "shared-content", false, "generate one email and send it to every recipient")
}
