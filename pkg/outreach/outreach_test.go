package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"outreach/pkg/bus"
	"outreach/pkg/compose"
	"outreach/pkg/config"
	providertypes "outreach/pkg/provider/types"
	"outreach/pkg/relay"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
	usage *providertypes.TokenUsage
}

func (f *fakeGenerator) Generate(_ context.Context, req compose.Request) (compose.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return compose.Message{}, f.err
	}
	return compose.Message{
		Subject: fmt.Sprintf("Subject %d", f.calls),
		Body:    "Body for " + req.JobDescription,
		Usage:   f.usage,
	}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sentMessage struct {
	recipient string
	subject   string
}

type fakeSender struct {
	mu     sync.Mutex
	failOn map[string]error
	delay  time.Duration
	sent   []sentMessage
	calls  int
}

func (f *fakeSender) SendMessage(ctx context.Context, cred relay.Credential, recipient string, subject string, body string) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failOn[recipient]; ok {
		return err
	}
	f.sent = append(f.sent, sentMessage{recipient: recipient, subject: subject})
	return nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []bus.Event
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event bus.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return true
}

func (p *recordingPublisher) types() []bus.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bus.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	testRequest = compose.Request{JobDescription: "Go engineer", CandidateProfile: "Ada, 10 years of Go"}
	testCred    = relay.Credential{Address: "me@example.com", Secret: "app-secret-123"}
	recipients  = []string{"a@acme.test", "b@acme.test", "c@acme.test"}
)

func TestDeliverToAllContinuesAfterFailure(t *testing.T) {
	gen := &fakeGenerator{}
	sender := &fakeSender{failOn: map[string]error{
		"b@acme.test": &relay.SendError{Stage: relay.StageTransmit, Recipient: "b@acme.test", Err: errors.New("550 mailbox unavailable")},
	}}
	orch := New(gen, sender, DefaultOptions())

	result, err := orch.DeliverToAll(context.Background(), testRequest, recipients, testCred)
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	require.Len(t, result.Outcomes, 3)

	for i, want := range recipients {
		require.Equal(t, want, result.Outcomes[i].Recipient)
	}
	require.True(t, result.Outcomes[0].Succeeded)
	require.False(t, result.Outcomes[1].Succeeded)
	require.True(t, result.Outcomes[2].Succeeded)

	require.Equal(t, StageSend, result.Outcomes[1].Stage)
	require.Contains(t, result.Outcomes[1].Error, "550")
	require.Nil(t, result.Outcomes[1].Message)
	require.NotNil(t, result.Outcomes[2].Message)

	require.Equal(t, 3, gen.callCount(), "content is regenerated per recipient")
	require.Equal(t, 3, sender.callCount(), "recipient 3 is still attempted")
	require.Equal(t, 2, result.Succeeded())
	require.Equal(t, 1, result.Failed())
	require.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestDeliverToAllPreconditionsMakeNoCalls(t *testing.T) {
	tests := []struct {
		name       string
		req        compose.Request
		recipients []string
	}{
		{name: "no recipients", req: testRequest, recipients: nil},
		{name: "empty profile", req: compose.Request{JobDescription: "job", CandidateProfile: "  \n"}, recipients: recipients},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			sender := &fakeSender{}
			events := &recordingPublisher{}
			opts := DefaultOptions()
			opts.Events = events

			result, err := New(gen, sender, opts).DeliverToAll(context.Background(), tt.req, tt.recipients, testCred)
			require.ErrorIs(t, err, ErrPrecondition)

			var precondition *PreconditionError
			require.ErrorAs(t, err, &precondition)
			require.Empty(t, result.Outcomes)
			require.Zero(t, gen.callCount())
			require.Zero(t, sender.callCount())
			require.Empty(t, events.types())
		})
	}
}

func TestDeliverToAllGenerationFailureIsPerRecipient(t *testing.T) {
	gen := &fakeGenerator{err: &compose.GenerationError{Kind: compose.ErrMalformedResponse, Reason: "no marker"}}
	sender := &fakeSender{}

	result, err := New(gen, sender, DefaultOptions()).DeliverToAll(context.Background(), testRequest, recipients, testCred)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)
	for _, outcome := range result.Outcomes {
		require.False(t, outcome.Succeeded)
		require.Equal(t, StageGenerate, outcome.Stage)
		require.ErrorIs(t, outcome.Err, compose.ErrMalformedResponse)
	}
	require.Equal(t, 3, gen.callCount())
	require.Zero(t, sender.callCount())
}

func TestDeliverToAllSharedContent(t *testing.T) {
	gen := &fakeGenerator{usage: &providertypes.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	sender := &fakeSender{}
	opts := DefaultOptions()
	opts.PersonalizePerRecipient = false

	result, err := New(gen, sender, opts).DeliverToAll(context.Background(), testRequest, recipients, testCred)
	require.NoError(t, err)
	require.Equal(t, 3, result.Succeeded())
	require.Equal(t, 1, gen.callCount())
	require.Equal(t, int64(15), result.Usage.TotalTokens, "shared generation is counted once")

	for _, sent := range sender.sent {
		require.Equal(t, "Subject 1", sent.subject)
	}
}

func TestDeliverToAllSharedGenerationFailureSkipsSends(t *testing.T) {
	gen := &fakeGenerator{err: &compose.GenerationError{Kind: compose.ErrServiceFailure, Err: errors.New("503")}}
	sender := &fakeSender{}
	opts := DefaultOptions()
	opts.PersonalizePerRecipient = false

	result, err := New(gen, sender, opts).DeliverToAll(context.Background(), testRequest, recipients, testCred)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)
	require.Equal(t, 3, result.Failed())
	require.Equal(t, 1, gen.callCount())
	require.Zero(t, sender.callCount())
}

func TestDeliverToAllConcurrentKeepsInputOrder(t *testing.T) {
	many := make([]string, 12)
	failOn := map[string]error{}
	for i := range many {
		many[i] = fmt.Sprintf("r%02d@acme.test", i)
		if i%4 == 1 {
			failOn[many[i]] = errors.New("rejected")
		}
	}
	gen := &fakeGenerator{usage: &providertypes.TokenUsage{TotalTokens: 2}}
	sender := &fakeSender{failOn: failOn, delay: 5 * time.Millisecond}
	opts := DefaultOptions()
	opts.Concurrency = 4

	result, err := New(gen, sender, opts).DeliverToAll(context.Background(), testRequest, many, testCred)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, len(many))
	for i, outcome := range result.Outcomes {
		require.Equal(t, many[i], outcome.Recipient)
		_, shouldFail := failOn[many[i]]
		require.Equal(t, !shouldFail, outcome.Succeeded, "recipient %s", many[i])
	}
	require.Equal(t, len(many), sender.callCount())
	require.Equal(t, int64(2*len(many)), result.Usage.TotalTokens)
}

func TestDeliverToAllCanceledContextStillReportsEveryRecipient(t *testing.T) {
	gen := &fakeGenerator{}
	sender := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(gen, sender, DefaultOptions()).DeliverToAll(ctx, testRequest, recipients, testCred)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)
	for _, outcome := range result.Outcomes {
		require.Equal(t, StageCanceled, outcome.Stage)
		require.ErrorIs(t, outcome.Err, context.Canceled)
	}
	require.Zero(t, sender.callCount())
}

func TestDeliverToAllRedactsCredentialSecret(t *testing.T) {
	sender := &fakeSender{failOn: map[string]error{
		"a@acme.test": errors.New("535 authentication failed for secret app-secret-123"),
	}}

	result, err := New(&fakeGenerator{}, sender, DefaultOptions()).DeliverToAll(context.Background(), testRequest, recipients[:1], testCred)
	require.NoError(t, err)
	require.False(t, strings.Contains(result.Outcomes[0].Error, testCred.Secret), "error leaked secret: %s", result.Outcomes[0].Error)
}

func TestDeliverToAllPublishesLifecycleEvents(t *testing.T) {
	events := &recordingPublisher{}
	sender := &fakeSender{failOn: map[string]error{"b@acme.test": errors.New("boom")}}
	opts := DefaultOptions()
	opts.Events = events

	result, err := New(&fakeGenerator{}, sender, opts).DeliverToAll(context.Background(), testRequest, recipients[:2], testCred)
	require.NoError(t, err)

	require.Equal(t, []bus.EventType{
		bus.EventBatchStarted,
		bus.EventGenerationStarted,
		bus.EventSendStarted,
		bus.EventDeliverySucceeded,
		bus.EventGenerationStarted,
		bus.EventSendStarted,
		bus.EventDeliveryFailed,
		bus.EventBatchCompleted,
	}, events.types())
	for _, e := range events.events {
		require.Equal(t, result.ID, e.BatchID)
	}
}

func TestDeliverToAllRateLimitPacesRecipients(t *testing.T) {
	opts := DefaultOptions()
	// 1200/min is one token every 50ms with a burst of one.
	opts.RateLimitPerMinute = 1200

	start := time.Now()
	result, err := New(&fakeGenerator{}, &fakeSender{}, opts).DeliverToAll(context.Background(), testRequest, recipients, testCred)
	require.NoError(t, err)
	require.Equal(t, 3, result.Succeeded())
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	require.True(t, OptionsFromConfig(cfg).PersonalizePerRecipient)

	shared := false
	cfg.Generation.PersonalizePerRecipient = &shared
	cfg.Delivery.Concurrency = 3
	cfg.Delivery.RateLimitPerMinute = 30

	opts := OptionsFromConfig(cfg)
	require.False(t, opts.PersonalizePerRecipient)
	require.Equal(t, 3, opts.Concurrency)
	require.Equal(t, 30.0, opts.RateLimitPerMinute)
}
