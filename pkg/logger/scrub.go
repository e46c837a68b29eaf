package logger

import (
	"context"
	"log/slog"
	"strings"

	"outreach/pkg/redact"
)

const redactedValue = "[redacted]"

// sensitiveKeys never reach the log output with their real value.
var sensitiveKeys = map[string]struct{}{
	"secret":   {},
	"password": {},
	"api_key":  {},
	"token":    {},
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// scrubHandler masks sensitive keys and strips known secrets and credential
// shapes from string and error values before the wrapped handler sees them.
type scrubHandler struct {
	next    slog.Handler
	secrets []string
}

func newScrubHandler(next slog.Handler, secrets []string) *scrubHandler {
	kept := make([]string, 0, len(secrets))
	for _, secret := range secrets {
		if strings.TrimSpace(secret) != "" {
			kept = append(kept, secret)
		}
	}
	return &scrubHandler{next: next, secrets: kept}
}

func (h *scrubHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *scrubHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, h.scrubString(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(h.scrubAttr(attr))
		return true
	})

	return h.next.Handle(ctx, clean)
}

func (h *scrubHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		clean = append(clean, h.scrubAttr(attr))
	}

	return &scrubHandler{next: h.next.WithAttrs(clean), secrets: h.secrets}
}

func (h *scrubHandler) WithGroup(name string) slog.Handler {
	return &scrubHandler{next: h.next.WithGroup(name), secrets: h.secrets}
}

func (h *scrubHandler) scrubAttr(attr slog.Attr) slog.Attr {
	if isSensitive(attr.Key) {
		return slog.String(attr.Key, redactedValue)
	}

	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, h.scrubString(value.String()))
	case slog.KindGroup:
		group := value.Group()
		clean := make([]any, 0, len(group))
		for _, item := range group {
			clean = append(clean, h.scrubAttr(item))
		}
		return slog.Group(attr.Key, clean...)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, h.scrubString(err.Error()))
		}
	}

	return slog.Attr{Key: attr.Key, Value: value}
}

func (h *scrubHandler) scrubString(value string) string {
	return redact.Secrets(value, h.secrets...)
}
