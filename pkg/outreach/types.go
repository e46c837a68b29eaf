package outreach

import (
	"errors"
	"fmt"
	"time"

	"outreach/pkg/compose"
	providertypes "outreach/pkg/provider/types"
)

// Stage names the pipeline step at which a recipient's delivery stopped.
type Stage string

const (
	StageGenerate Stage = "generate"
	StageSend     Stage = "send"
	StageCanceled Stage = "canceled"
)

// Outcome is the result for one recipient. It is created once and never mutated.
type Outcome struct {
	Recipient string           `json:"recipient"`
	Succeeded bool             `json:"succeeded"`
	Message   *compose.Message `json:"message,omitempty"`
	Stage     Stage            `json:"stage,omitempty"`
	Error     string           `json:"error,omitempty"`
	Err       error            `json:"-"`
}

// BatchResult holds one outcome per requested recipient in input order.
type BatchResult struct {
	ID         string                   `json:"id"`
	Outcomes   []Outcome                `json:"outcomes"`
	Usage      providertypes.TokenUsage `json:"usage"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

func (b BatchResult) Succeeded() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Succeeded {
			n++
		}
	}
	return n
}

func (b BatchResult) Failed() int {
	return len(b.Outcomes) - b.Succeeded()
}

func (b BatchResult) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// ErrPrecondition is matched by every *PreconditionError.
var ErrPrecondition = errors.New("delivery precondition failed")

// PreconditionError rejects a whole batch before any network activity.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrPrecondition, e.Field, e.Reason)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}
