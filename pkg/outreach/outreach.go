package outreach

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"outreach/pkg/bus"
	"outreach/pkg/compose"
	"outreach/pkg/config"
	providertypes "outreach/pkg/provider/types"
	"outreach/pkg/redact"
	"outreach/pkg/relay"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Generator writes one message for a request.
type Generator interface {
	Generate(ctx context.Context, req compose.Request) (compose.Message, error)
}

// Sender delivers one message over a fresh relay session.
type Sender interface {
	SendMessage(ctx context.Context, cred relay.Credential, recipient string, subject string, body string) error
}

// EventPublisher receives batch lifecycle events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event bus.Event) bool
}

type Options struct {
	// PersonalizePerRecipient regenerates content for every recipient. When
	// false one message is generated and shared by the whole batch.
	PersonalizePerRecipient bool
	// Concurrency is the number of recipients in flight. 1 is strictly sequential.
	Concurrency int
	// RateLimitPerMinute paces recipient starts. Set to <=0 to disable.
	RateLimitPerMinute float64
	Events             EventPublisher
}

func DefaultOptions() Options {
	return Options{PersonalizePerRecipient: true, Concurrency: 1}
}

// OptionsFromConfig maps generation and delivery settings onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PersonalizePerRecipient: cfg.Generation.Personalize(),
		Concurrency:             cfg.Delivery.Concurrency,
		RateLimitPerMinute:      cfg.Delivery.RateLimitPerMinute,
	}
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}

// Orchestrator runs generate-then-send for every recipient of a batch and
// records exactly one outcome per recipient. A failure never stops the batch.
type Orchestrator struct {
	generator Generator
	sender    Sender
	opts      Options
	now       func() time.Time
	newID     func() string
}

func New(generator Generator, sender Sender, opts Options) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		sender:    sender,
		opts:      opts.withDefaults(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

type batchRun struct {
	*Orchestrator
	id      string
	req     compose.Request
	cred    relay.Credential
	limiter *rate.Limiter
	log     *slog.Logger

	usageMu sync.Mutex
	usage   providertypes.TokenUsage
}

func (o *Orchestrator) DeliverToAll(ctx context.Context, req compose.Request, recipients []string, cred relay.Credential) (BatchResult, error) {
	if len(recipients) == 0 {
		return BatchResult{}, &PreconditionError{Field: "recipients", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.CandidateProfile) == "" {
		return BatchResult{}, &PreconditionError{Field: "candidate profile", Reason: "must not be empty"}
	}

	run := &batchRun{
		Orchestrator: o,
		id:           o.newID(),
		req:          req,
		cred:         cred,
	}
	run.log = slog.Default().With("component", "outreach", "batch_id", run.id)
	if o.opts.RateLimitPerMinute > 0 {
		run.limiter = rate.NewLimiter(rate.Limit(o.opts.RateLimitPerMinute/60), 1)
	}

	result := BatchResult{
		ID:        run.id,
		Outcomes:  make([]Outcome, len(recipients)),
		StartedAt: o.now(),
	}
	run.log.Info("Delivery batch started",
		"recipients", len(recipients),
		"personalize", o.opts.PersonalizePerRecipient,
		"concurrency", o.opts.Concurrency,
	)
	run.publish(ctx, bus.Event{Type: bus.EventBatchStarted, Index: -1, Payload: map[string]string{
		"recipients": strconv.Itoa(len(recipients)),
	}})

	var shared *compose.Message
	var sharedErr error
	if !o.opts.PersonalizePerRecipient {
		msg, err := run.generate(ctx, -1, "")
		if err != nil {
			sharedErr = err
		} else {
			shared = &msg
		}
	}

	deliver := func(i int, recipient string) {
		if sharedErr != nil {
			result.Outcomes[i] = run.failed(ctx, i, recipient, StageGenerate, sharedErr)
			return
		}
		result.Outcomes[i] = run.deliverOne(ctx, i, recipient, shared)
	}

	if o.opts.Concurrency == 1 {
		for i, recipient := range recipients {
			deliver(i, recipient)
		}
	} else {
		// Outcomes are written by index; workers never return errors so one
		// failure cannot cancel another recipient.
		var g errgroup.Group
		g.SetLimit(o.opts.Concurrency)
		for i, recipient := range recipients {
			g.Go(func() error {
				deliver(i, recipient)
				return nil
			})
		}
		_ = g.Wait()
	}

	result.Usage = run.usage
	result.FinishedAt = o.now()

	run.log.Info("Delivery batch completed",
		"succeeded", result.Succeeded(),
		"failed", result.Failed(),
		"duration_ms", result.Duration().Milliseconds(),
	)
	run.publish(ctx, bus.Event{Type: bus.EventBatchCompleted, Index: -1, Payload: map[string]string{
		"succeeded": strconv.Itoa(result.Succeeded()),
		"failed":    strconv.Itoa(result.Failed()),
	}})

	return result, nil
}

func (r *batchRun) deliverOne(ctx context.Context, i int, recipient string, shared *compose.Message) Outcome {
	if err := ctx.Err(); err != nil {
		return r.failed(ctx, i, recipient, StageCanceled, err)
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return r.failed(ctx, i, recipient, StageCanceled, err)
		}
	}

	var msg compose.Message
	if shared != nil {
		msg = *shared
	} else {
		generated, err := r.generate(ctx, i, recipient)
		if err != nil {
			return r.failed(ctx, i, recipient, StageGenerate, err)
		}
		msg = generated
	}

	r.publish(ctx, bus.Event{Type: bus.EventSendStarted, Index: i, Recipient: recipient})
	if err := r.sender.SendMessage(ctx, r.cred, recipient, msg.Subject, msg.Body); err != nil {
		return r.failed(ctx, i, recipient, StageSend, err)
	}

	r.log.Debug("Delivery succeeded", "index", i, "recipient", recipient)
	r.publish(ctx, bus.Event{Type: bus.EventDeliverySucceeded, Index: i, Recipient: recipient, Payload: map[string]string{
		"subject": msg.Subject,
	}})

	return Outcome{Recipient: recipient, Succeeded: true, Message: &msg}
}

func (r *batchRun) generate(ctx context.Context, i int, recipient string) (compose.Message, error) {
	r.publish(ctx, bus.Event{Type: bus.EventGenerationStarted, Index: i, Recipient: recipient})

	msg, err := r.generator.Generate(ctx, r.req)
	if err != nil {
		r.publish(ctx, bus.Event{Type: bus.EventGenerationFailed, Index: i, Recipient: recipient, Error: r.redact(err)})
		return compose.Message{}, err
	}
	if msg.Usage != nil {
		r.usageMu.Lock()
		r.usage = r.usage.Add(*msg.Usage)
		r.usageMu.Unlock()
	}

	return msg, nil
}

func (r *batchRun) failed(ctx context.Context, i int, recipient string, stage Stage, err error) Outcome {
	reason := r.redact(err)
	r.log.Debug("Delivery failed", "index", i, "recipient", recipient, "stage", stage, "error", reason)
	r.publish(ctx, bus.Event{Type: bus.EventDeliveryFailed, Index: i, Recipient: recipient, Error: reason, Payload: map[string]string{
		"stage": string(stage),
	}})

	return Outcome{Recipient: recipient, Stage: stage, Error: reason, Err: err}
}

func (r *batchRun) redact(err error) string {
	return redact.Secrets(err.Error(), r.cred.Secret)
}

func (r *batchRun) publish(ctx context.Context, event bus.Event) {
	if r.opts.Events == nil {
		return
	}
	event.BatchID = r.id
	// Events still describe a batch whose context was canceled midway.
	r.opts.Events.PublishEvent(context.WithoutCancel(ctx), event)
}
