package fantasy

import (
	"context"
	"errors"
	"testing"

	core "charm.land/fantasy"

	"outreach/pkg/config"
	providertypes "outreach/pkg/provider/types"
)

type fakeLanguageModelProvider struct {
	model     core.LanguageModel
	err       error
	lastID    string
	callCount int
}

func (f *fakeLanguageModelProvider) LanguageModel(ctx context.Context, modelID string) (core.LanguageModel, error) {
	f.callCount++
	f.lastID = modelID
	if f.err != nil {
		return nil, f.err
	}

	return f.model, nil
}

type fakeLanguageModel struct{}

func (f *fakeLanguageModel) Generate(context.Context, core.Call) (*core.Response, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLanguageModel) Stream(context.Context, core.Call) (core.StreamResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLanguageModel) GenerateObject(context.Context, core.ObjectCall) (*core.ObjectResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLanguageModel) StreamObject(context.Context, core.ObjectCall) (core.ObjectStreamResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLanguageModel) Provider() string { return "openai" }
func (f *fakeLanguageModel) Model() string    { return "gpt-4o-mini" }

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &config.Config{}
	cfg.Generation.Model = "openai/gpt-4o-mini"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestNewRejectsForeignModelPrefix(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := &config.Config{}
	cfg.Generation.Model = "groq/llama-3.1-70b-versatile"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for non-openai model prefix")
	}
}

func TestNormalizeOpenAIModel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain model", input: "gpt-4o-mini", want: "gpt-4o-mini"},
		{name: "openai prefixed", input: "openai/gpt-4o-mini", want: "gpt-4o-mini"},
		{name: "non openai prefixed", input: "anthropic/claude", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeOpenAIModel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeOpenAIModel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("normalizeOpenAIModel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHealthResolvesConfiguredModel(t *testing.T) {
	provider := &fakeLanguageModelProvider{model: &fakeLanguageModel{}}
	client := &Client{provider: provider, modelID: "gpt-4o-mini"}

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health error: %v", err)
	}
	if provider.callCount != 1 || provider.lastID != "gpt-4o-mini" {
		t.Fatalf("LanguageModel calls = %d id = %q", provider.callCount, provider.lastID)
	}
}

func TestCompletePassesSamplingParameters(t *testing.T) {
	var gotCall core.AgentCall
	client := &Client{
		provider: &fakeLanguageModelProvider{model: &fakeLanguageModel{}},
		modelID:  "gpt-4o-mini",
		generate: func(_ context.Context, _ core.LanguageModel, call core.AgentCall) (*core.AgentResult, error) {
			gotCall = call
			return &core.AgentResult{
				Response: core.Response{
					Content: core.ResponseContent{core.TextContent{Text: "SUBJECT: Hi\n\nBody\n---END---"}},
				},
				TotalUsage: core.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
			}, nil
		},
	}

	result, err := client.Complete(context.Background(), providertypes.CompletionRequest{
		Prompt:      "write it",
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if result.Text != "SUBJECT: Hi\n\nBody\n---END---" {
		t.Fatalf("text = %q", result.Text)
	}
	if gotCall.Prompt != "write it" {
		t.Fatalf("prompt = %q", gotCall.Prompt)
	}
	if gotCall.MaxOutputTokens == nil || *gotCall.MaxOutputTokens != 1000 {
		t.Fatalf("max output tokens = %v, want 1000", gotCall.MaxOutputTokens)
	}
	if gotCall.Temperature == nil || *gotCall.Temperature != 0.7 {
		t.Fatalf("temperature = %v, want 0.7", gotCall.Temperature)
	}
	if result.Metadata.Usage == nil || result.Metadata.Usage.TotalTokens != 15 {
		t.Fatalf("usage = %+v, want total 15", result.Metadata.Usage)
	}
}

func TestCompleteValidatesInput(t *testing.T) {
	client := &Client{provider: &fakeLanguageModelProvider{model: &fakeLanguageModel{}}, modelID: "gpt-4o-mini"}

	if _, err := client.Complete(context.Background(), providertypes.CompletionRequest{Prompt: " "}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if _, err := client.Complete(context.Background(), providertypes.CompletionRequest{Prompt: "hi", Model: "groq/llama"}); err == nil {
		t.Fatal("expected error for foreign model prefix")
	}
}

func TestCompleteWrapsGenerateError(t *testing.T) {
	wantErr := errors.New("rate limited")
	client := &Client{
		provider: &fakeLanguageModelProvider{model: &fakeLanguageModel{}},
		modelID:  "gpt-4o-mini",
		generate: func(context.Context, core.LanguageModel, core.AgentCall) (*core.AgentResult, error) {
			return nil, wantErr
		},
	}

	_, err := client.Complete(context.Background(), providertypes.CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestExtractText(t *testing.T) {
	content := core.ResponseContent{
		core.ReasoningContent{Text: "ignore me"},
		core.TextContent{Text: "  first  "},
		core.TextContent{Text: ""},
		core.TextContent{Text: "second"},
	}

	got := extractText(content)
	if got != "first\nsecond" {
		t.Fatalf("extractText() = %q", got)
	}
}
