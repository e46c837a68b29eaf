package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"outreach/pkg/config"
	providertypes "outreach/pkg/provider/types"
)

type fakeCompleter struct {
	text    string
	usage   *providertypes.TokenUsage
	err     error
	calls   int
	lastReq providertypes.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req providertypes.CompletionRequest) (providertypes.CompletionResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return providertypes.CompletionResult{}, f.err
	}
	return providertypes.CompletionResult{
		Text:     f.text,
		Metadata: providertypes.CompletionMetadata{Usage: f.usage},
	}, nil
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSubject string
		wantBody    string
		wantErr     bool
	}{
		{
			name:        "well formed",
			raw:         "SUBJECT: Hello\n\nBody text\n---END---",
			wantSubject: "Hello",
			wantBody:    "Body text",
		},
		{
			name:        "preamble and trailing text are dropped",
			raw:         "Sure! Here it is.\nSUBJECT: Backend role at Acme\n\nHi Sam,\n\nI build APIs.\n\nBest regards\n---END---\nGood luck!",
			wantSubject: "Backend role at Acme",
			wantBody:    "Hi Sam,\n\nI build APIs.\n\nBest regards",
		},
		{
			name:        "missing terminator keeps the rest",
			raw:         "SUBJECT: Hello\nBody without end",
			wantSubject: "Hello",
			wantBody:    "Body without end",
		},
		{
			name:        "only the first marker splits",
			raw:         "SUBJECT: One\nBody mentions SUBJECT: inline\n---END---",
			wantSubject: "One",
			wantBody:    "Body mentions SUBJECT: inline",
		},
		{name: "missing marker", raw: "Subject line\n\nBody\n---END---", wantErr: true},
		{name: "no line break", raw: "SUBJECT: Only a subject---END---", wantErr: true},
		{name: "empty body", raw: "SUBJECT: Hello\n   \n---END---", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("error = %v, want ErrMalformedResponse", err)
				}
				if got != (Message{}) {
					t.Fatalf("got partial message %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse error: %v", err)
			}
			if got.Subject != tt.wantSubject {
				t.Fatalf("subject = %q, want %q", got.Subject, tt.wantSubject)
			}
			if got.Body != tt.wantBody {
				t.Fatalf("body = %q, want %q", got.Body, tt.wantBody)
			}
		})
	}
}

func TestBuildPromptEmbedsInputsVerbatim(t *testing.T) {
	req := Request{
		JobDescription:   "Senior Go engineer <remote> {{not a template}}",
		CandidateProfile: "Ada Lovelace\nhttps://github.com/ada",
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		t.Fatalf("BuildPrompt error: %v", err)
	}

	for _, want := range []string{
		"Job Description: " + req.JobDescription,
		"Candidate Profile:\n" + req.CandidateProfile,
		"Keep it under 250 words",
		"social links",
		"SUBJECT: [Your subject line]",
		"---END---",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGenerateUsesConfiguredParameters(t *testing.T) {
	fake := &fakeCompleter{
		text:  "SUBJECT: Hello\n\nBody text\n---END---",
		usage: &providertypes.TokenUsage{TotalTokens: 99},
	}
	gen := NewGenerator(fake, config.GenerationConfig{})

	msg, err := gen.Generate(context.Background(), Request{JobDescription: "job", CandidateProfile: "me"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if msg.Subject != "Hello" || msg.Body != "Body text" {
		t.Fatalf("message = %+v", msg)
	}
	if msg.Usage == nil || msg.Usage.TotalTokens != 99 {
		t.Fatalf("usage = %+v, want total 99", msg.Usage)
	}
	if fake.calls != 1 {
		t.Fatalf("calls = %d, want 1", fake.calls)
	}
	if fake.lastReq.Model != config.DefaultModel {
		t.Fatalf("model = %q, want %q", fake.lastReq.Model, config.DefaultModel)
	}
	if fake.lastReq.Temperature != 0.7 || fake.lastReq.MaxTokens != 1000 {
		t.Fatalf("sampling = %v/%d, want 0.7/1000", fake.lastReq.Temperature, fake.lastReq.MaxTokens)
	}
}

func TestNewGeneratorHonorsZeroTemperatureAndProviderModel(t *testing.T) {
	fake := &fakeCompleter{text: "SUBJECT: Hello\n\nBody text\n---END---"}
	zero := 0.0
	gen := NewGenerator(fake, config.GenerationConfig{Provider: "gemini", Temperature: &zero})

	if _, err := gen.Generate(context.Background(), Request{JobDescription: "job", CandidateProfile: "me"}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if fake.lastReq.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", fake.lastReq.Temperature)
	}
	if fake.lastReq.Model != "gemini-2.5-flash" {
		t.Fatalf("model = %q, want gemini default", fake.lastReq.Model)
	}
}

func TestGenerateClassifiesFailures(t *testing.T) {
	serviceErr := errors.New("429 rate limit")

	tests := []struct {
		name     string
		fake     *fakeCompleter
		wantKind error
	}{
		{name: "service failure", fake: &fakeCompleter{err: serviceErr}, wantKind: ErrServiceFailure},
		{name: "malformed", fake: &fakeCompleter{text: "I cannot help with that."}, wantKind: ErrMalformedResponse},
		{name: "blank text", fake: &fakeCompleter{text: "  \n "}, wantKind: ErrMalformedResponse},
		{name: "empty completion", fake: &fakeCompleter{err: providertypes.ErrEmptyCompletion}, wantKind: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewGenerator(tt.fake, config.GenerationConfig{Model: "m"})

			_, err := gen.Generate(context.Background(), Request{JobDescription: "job", CandidateProfile: "me"})
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("error = %v, want %v", err, tt.wantKind)
			}
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("error = %T, want *GenerationError", err)
			}
			if tt.fake.calls != 1 {
				t.Fatalf("calls = %d, want exactly 1", tt.fake.calls)
			}
		})
	}

	gen := NewGenerator(&fakeCompleter{err: serviceErr}, config.GenerationConfig{})
	_, err := gen.Generate(context.Background(), Request{})
	if !errors.Is(err, serviceErr) {
		t.Fatalf("error = %v, want wrapped cause", err)
	}
}
