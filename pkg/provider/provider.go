package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"outreach/pkg/config"
	providerfantasy "outreach/pkg/provider/fantasy"
	"outreach/pkg/provider/gemini"
	provideropenai "outreach/pkg/provider/openai"
	"outreach/pkg/provider/opencode"
	providertypes "outreach/pkg/provider/types"
)

// Client is the completion collaborator: one prompt in, raw text out.
type Client interface {
	Health(ctx context.Context) error
	Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.CompletionResult, error)
}

// New returns the completion client selected by generation.provider.
func New(cfg *config.Config) (Client, error) {
	providerID := strings.ToLower(strings.TrimSpace(cfg.Generation.Provider))
	if providerID == "" {
		providerID = config.DefaultProvider
	}

	slog.Default().With("component", "provider.factory").Debug("Resolving provider client", "provider", providerID)

	switch providerID {
	case "openai":
		return provideropenai.New(cfg)
	case "groq":
		return provideropenai.NewGroq(cfg)
	case "gemini":
		return gemini.New(context.Background(), cfg)
	case "opencode":
		return opencode.New(cfg)
	case "fantasy":
		return providerfantasy.New(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerID)
	}
}
