package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"outreach/pkg/config"
	providertypes "outreach/pkg/provider/types"

	"google.golang.org/genai"
)

const providerID = "gemini"

var defaultKeyEnvs = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type getModelFunc func(ctx context.Context, model string, cfg *genai.GetModelConfig) (*genai.Model, error)

// Client calls the Gemini API generateContent endpoint.
type Client struct {
	model          string
	requestTimeout time.Duration
	generate       generateFunc
	getModel       getModelFunc
}

func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	providerCfg := cfg.Providers.Gemini
	apiKey := resolveAPIKey(providerCfg)
	if apiKey == "" {
		return nil, errors.New("providers.gemini.api_key_env is required or GEMINI_API_KEY must be set")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL := strings.TrimSpace(providerCfg.BaseURL); baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("initialize gemini client: %w", err)
	}

	return &Client{
		model:          normalizeModel(cfg.Generation.Model),
		requestTimeout: time.Duration(providerCfg.RequestTimeoutSeconds) * time.Second,
		generate:       client.Models.GenerateContent,
		getModel:       client.Models.Get,
	}, nil
}

// Health resolves the configured model, which fails on bad keys or unknown models.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if c.model == "" {
		return errors.New("model is required")
	}
	if _, err := c.getModel(ctx, c.model, nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

func (c *Client) Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.CompletionResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "complete")
	startedAt := time.Now()

	req = req.Normalize()
	if req.Prompt == "" {
		return providertypes.CompletionResult{}, errors.New("prompt is required")
	}
	model := normalizeModel(req.Model)
	if model == "" {
		return providertypes.CompletionResult{}, errors.New("model is required")
	}
	log.Debug("provider request started", "model", model, "prompt_length", len(req.Prompt))

	generationCfg := &genai.GenerateContentConfig{
		CandidateCount: 1,
		Temperature:    genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		generationCfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.generate(ctx, model, genai.Text(req.Prompt), generationCfg)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.CompletionResult{}, fmt.Errorf("completion failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no output text")
		return providertypes.CompletionResult{}, providertypes.ErrEmptyCompletion
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(text))

	metadata := providertypes.CompletionMetadata{Provider: providerID, Model: model}
	if usage := usageFromResponse(resp); !usage.IsZero() {
		metadata.Usage = &usage
	}

	return providertypes.CompletionResult{Text: text, Metadata: metadata}, nil
}

func usageFromResponse(resp *genai.GenerateContentResponse) providertypes.TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return providertypes.TokenUsage{}
	}

	meta := resp.UsageMetadata
	return providertypes.TokenUsage{
		InputTokens:     int64(meta.PromptTokenCount),
		OutputTokens:    int64(meta.CandidatesTokenCount),
		TotalTokens:     int64(meta.TotalTokenCount),
		ReasoningTokens: int64(meta.ThoughtsTokenCount),
		CacheReadTokens: int64(meta.CachedContentTokenCount),
	}
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.gemini")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func resolveAPIKey(cfg config.GeminiProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	for _, name := range defaultKeyEnvs {
		if apiKey := strings.TrimSpace(os.Getenv(name)); apiKey != "" {
			return apiKey
		}
	}

	return ""
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	if trimmed, ok := strings.CutPrefix(model, providerID+"/"); ok {
		return strings.TrimSpace(trimmed)
	}

	return model
}
