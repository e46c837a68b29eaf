package types

import (
	"errors"
	"strings"
)

// ErrEmptyCompletion is returned when the service answered without any text.
// Callers treat it as an unusable response rather than a service outage.
var ErrEmptyCompletion = errors.New("completion succeeded but returned no text")

// CompletionRequest is one prompt with the sampling parameters the caller fixed.
type CompletionRequest struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Normalize trims the textual fields of the request.
func (r CompletionRequest) Normalize() CompletionRequest {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Model = strings.TrimSpace(r.Model)
	return r
}

// CompletionResult is the normalized provider response payload.
type CompletionResult struct {
	Text     string
	Metadata CompletionMetadata
}

// CompletionMetadata carries provider/model identity and optional usage accounting.
type CompletionMetadata struct {
	Provider string
	Model    string
	Usage    *TokenUsage
}

// TokenUsage captures token accounting across providers.
type TokenUsage struct {
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	TotalTokens     int64 `json:"total_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens,omitempty"`
	CacheReadTokens int64 `json:"cache_read_tokens,omitempty"`
}

// IsZero reports whether all token counters are unset/zero.
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 &&
		u.OutputTokens == 0 &&
		u.TotalTokens == 0 &&
		u.ReasoningTokens == 0 &&
		u.CacheReadTokens == 0
}

// Add returns the element-wise sum of two usage records.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:     u.InputTokens + other.InputTokens,
		OutputTokens:    u.OutputTokens + other.OutputTokens,
		TotalTokens:     u.TotalTokens + other.TotalTokens,
		ReasoningTokens: u.ReasoningTokens + other.ReasoningTokens,
		CacheReadTokens: u.CacheReadTokens + other.CacheReadTokens,
	}
}
