package bus

import "time"

type EventType string

const (
	EventBatchStarted      EventType = "batch_started"
	EventGenerationStarted EventType = "generation_started"
	EventGenerationFailed  EventType = "generation_failed"
	EventSendStarted       EventType = "send_started"
	EventDeliverySucceeded EventType = "delivery_succeeded"
	EventDeliveryFailed    EventType = "delivery_failed"
	EventBatchCompleted    EventType = "batch_completed"
)

// Event describes one step of a delivery batch. Index is the recipient's
// position in the input list, or -1 for batch-level events.
type Event struct {
	Type      EventType         `json:"type"`
	At        time.Time         `json:"at"`
	BatchID   string            `json:"batch_id"`
	Recipient string            `json:"recipient,omitempty"`
	Index     int               `json:"index"`
	Payload   map[string]string `json:"payload,omitempty"`
	Error     string            `json:"error,omitempty"`
}
