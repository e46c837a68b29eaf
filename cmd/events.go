package cmd

import (
	"log/slog"

	"outreach/pkg/bus"
)

// observeDeliveryEvents subscribes before returning so no event published
// afterwards is missed. The returned channel closes once the bus is closed and
// every buffered event has been logged.
func observeDeliveryEvents(eventBus *bus.EventBus) <-chan struct{} {
	log := slog.Default().With("component", "bus.events")
	events := eventBus.Subscribe(64)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			logEvent(log, event)
		}
	}()

	return done
}

func logEvent(log *slog.Logger, event bus.Event) {
	attrs := []any{
		"event_type", event.Type,
		"batch_id", event.BatchID,
		"index", event.Index,
		"timestamp", event.At.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
	if event.Recipient != "" {
		attrs = append(attrs, "recipient", event.Recipient)
	}
	if len(event.Payload) > 0 {
		attrs = append(attrs, "payload", event.Payload)
	}

	switch event.Type {
	case bus.EventDeliveryFailed, bus.EventGenerationFailed:
		log.Error("Delivery event", append(attrs, "error", event.Error)...)
	case bus.EventBatchStarted, bus.EventBatchCompleted, bus.EventDeliverySucceeded:
		log.Info("Delivery event", attrs...)
	default:
		log.Debug("Delivery event", attrs...)
	}
}
