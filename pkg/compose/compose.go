package compose

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"outreach/pkg/config"
	providertypes "outreach/pkg/provider/types"
)

// Request is the immutable input to one generation.
type Request struct {
	JobDescription   string
	CandidateProfile string
}

// Message is a parsed outreach email. Subject and Body are never empty.
type Message struct {
	Subject string                    `json:"subject"`
	Body    string                    `json:"body"`
	Usage   *providertypes.TokenUsage `json:"usage,omitempty"`
}

// Completer is the completion service the generator calls.
type Completer interface {
	Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.CompletionResult, error)
}

// Generator turns a Request into a Message with one completion call.
type Generator struct {
	client      Completer
	model       string
	temperature float64
	maxTokens   int
}

func NewGenerator(client Completer, cfg config.GenerationConfig) *Generator {
	g := &Generator{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.SamplingTemperature(),
		maxTokens:   cfg.MaxTokens,
	}
	if g.model == "" {
		g.model = config.DefaultModelFor(cfg.Provider)
	}
	if g.maxTokens <= 0 {
		g.maxTokens = config.DefaultMaxTokens
	}
	return g
}

// Generate builds the prompt, calls the completion service once and parses
// the framed response. No retries.
func (g *Generator) Generate(ctx context.Context, req Request) (Message, error) {
	log := slog.Default().With("component", "compose", "model", g.model)
	startedAt := time.Now()

	prompt, err := BuildPrompt(req)
	if err != nil {
		return Message{}, err
	}

	result, err := g.client.Complete(ctx, providertypes.CompletionRequest{
		Prompt:      prompt,
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if errors.Is(err, providertypes.ErrEmptyCompletion) {
		log.Debug("Generation returned no text", "duration_ms", time.Since(startedAt).Milliseconds())
		return Message{}, malformed("empty response")
	}
	if err != nil {
		log.Debug("Generation failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return Message{}, serviceFailure(err)
	}

	msg, err := ParseResponse(result.Text)
	if err != nil {
		log.Debug("Generation returned unparseable response", "response_length", len(result.Text), "error", err)
		return Message{}, err
	}
	msg.Usage = result.Metadata.Usage

	log.Debug("Generation completed",
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"subject_length", len(msg.Subject),
		"body_length", len(msg.Body),
	)
	return msg, nil
}
