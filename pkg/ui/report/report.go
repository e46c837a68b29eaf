package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"outreach/pkg/compose"
	"outreach/pkg/outreach"
	providertypes "outreach/pkg/provider/types"

	"github.com/charmbracelet/lipgloss"
)

const messageWidth = 72

// Batch writes a styled per-recipient report followed by a summary line.
func Batch(w io.Writer, result outreach.BatchResult) error {
	t := defaultTheme()

	parts := []string{
		t.header.Render("outreach delivery report"),
		t.headerMeta.Render(fmt.Sprintf("batch %s · %d recipients · %s", result.ID, len(result.Outcomes), result.Duration().Round(time.Millisecond))),
		t.divider.Render(strings.Repeat("─", messageWidth)),
	}

	for i, outcome := range result.Outcomes {
		parts = append(parts, renderOutcome(t, i+1, outcome))
	}

	parts = append(parts, t.divider.Render(strings.Repeat("─", messageWidth)))
	summary := fmt.Sprintf("%d sent, %d failed", result.Succeeded(), result.Failed())
	if result.Failed() > 0 {
		parts = append(parts, t.summaryErr.Render(summary))
	} else {
		parts = append(parts, t.summary.Render(summary))
	}
	if !result.Usage.IsZero() {
		parts = append(parts, t.hint.Render(formatUsageLine(result.Usage)))
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, parts...))
	return err
}

func renderOutcome(t theme, position int, outcome outreach.Outcome) string {
	line := fmt.Sprintf("%2d. ", position)
	if outcome.Succeeded {
		line += t.okBadge.Render("SENT") + " " + t.recipient.Render(outcome.Recipient)
		if outcome.Message != nil {
			line += "\n    " + t.subject.Render(outcome.Message.Subject)
		}
		return line
	}

	line += t.failBadge.Render("FAILED") + " " + t.recipient.Render(outcome.Recipient)
	detail := outcome.Error
	if outcome.Stage != "" {
		detail = string(outcome.Stage) + ": " + detail
	}
	return line + "\n    " + t.errorText.Render(detail)
}

// Message writes a generated email as a titled card.
func Message(w io.Writer, msg compose.Message) error {
	t := defaultTheme()

	body := "Subject: " + msg.Subject + "\n\n" + msg.Body
	if msg.Usage != nil && !msg.Usage.IsZero() {
		body += "\n\n" + t.hint.Render(formatUsageLine(*msg.Usage))
	}

	card := lipgloss.JoinVertical(lipgloss.Left,
		t.messageTitle.Render("generated email"),
		t.messageBox.Width(messageWidth).Render(body),
	)
	_, err := fmt.Fprintln(w, card)
	return err
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatUsageLine(usage providertypes.TokenUsage) string {
	return fmt.Sprintf("tokens in/out/total: %d/%d/%d", usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
}
