package openai

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

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	providerOpenAI = "openai"
	providerGroq   = "groq"

	defaultOpenAIKeyEnv = "OPENAI_API_KEY"
	defaultGroqKeyEnv   = "GROQ_API_KEY"
	defaultGroqBaseURL  = "https://api.groq.com/openai/v1"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	client         osdk.Client
	providerID     string
	requestTimeout time.Duration
}

// New builds a client for api.openai.com (or the configured base URL).
func New(cfg *config.Config) (*Client, error) {
	return newClient(providerOpenAI, cfg.Providers.OpenAI, defaultOpenAIKeyEnv, "")
}

// NewGroq builds a client for Groq's OpenAI-compatible endpoint.
func NewGroq(cfg *config.Config) (*Client, error) {
	return newClient(providerGroq, cfg.Providers.Groq, defaultGroqKeyEnv, defaultGroqBaseURL)
}

func newClient(providerID string, providerCfg config.OpenAIProviderConfig, defaultKeyEnv string, defaultBaseURL string) (*Client, error) {
	apiKey := resolveAPIKey(providerCfg, defaultKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("providers.%s.api_key_env is required or %s must be set", providerID, defaultKeyEnv)
	}

	// The caller decides whether to retry a failed generation.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}

	baseURL := strings.TrimSpace(providerCfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if organization := strings.TrimSpace(providerCfg.Organization); organization != "" {
		opts = append(opts, option.WithOrganization(organization))
	}
	if project := strings.TrimSpace(providerCfg.Project); project != "" {
		opts = append(opts, option.WithProject(project))
	}

	requestTimeout := time.Duration(providerCfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(requestTimeout))
	}

	return &Client{
		client:         osdk.NewClient(opts...),
		providerID:     providerID,
		requestTimeout: requestTimeout,
	}, nil
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := c.logger().With("operation", "health")
	startedAt := time.Now()
	log.Debug("provider request started")

	if _, err := c.client.Models.List(ctx); err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return nil
}

func (c *Client) Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.CompletionResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := c.logger().With("operation", "complete")
	startedAt := time.Now()

	req = req.Normalize()
	if req.Prompt == "" {
		return providertypes.CompletionResult{}, errors.New("prompt is required")
	}

	model, err := normalizeModel(c.providerID, req.Model)
	if err != nil {
		return providertypes.CompletionResult{}, err
	}
	log.Debug("provider request started",
		"model", model,
		"prompt_length", len(req.Prompt),
		"temperature", req.Temperature,
		"max_tokens", req.MaxTokens,
	)

	params := osdk.ChatCompletionNewParams{
		Model: model,
		Messages: []osdk.ChatCompletionMessageParamUnion{
			osdk.UserMessage(req.Prompt),
		},
		Temperature: osdk.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = osdk.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.CompletionResult{}, fmt.Errorf("completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no choices")
		return providertypes.CompletionResult{}, errors.New("completion succeeded but returned no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no output text")
		return providertypes.CompletionResult{}, providertypes.ErrEmptyCompletion
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(text))

	usage := providertypes.TokenUsage{
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
		TotalTokens:  completion.Usage.TotalTokens,
	}
	metadata := providertypes.CompletionMetadata{
		Provider: c.providerID,
		Model:    strings.TrimSpace(completion.Model),
	}
	if metadata.Model == "" {
		metadata.Model = model
	}
	if !usage.IsZero() {
		metadata.Usage = &usage
	}

	return providertypes.CompletionResult{Text: text, Metadata: metadata}, nil
}

func (c *Client) logger() *slog.Logger {
	return slog.Default().With("component", "provider."+c.providerID)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func resolveAPIKey(cfg config.OpenAIProviderConfig, defaultKeyEnv string) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv(defaultKeyEnv))
}

// normalizeModel strips an optional "<provider>/" prefix. Other slashes are
// kept because hosted model ids such as "meta-llama/llama-4" contain them.
func normalizeModel(providerID string, model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", errors.New("model is required")
	}

	modelID, found := strings.CutPrefix(model, providerID+"/")
	if !found {
		return model, nil
	}

	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return "", errors.New("model is invalid")
	}

	return modelID, nil
}
