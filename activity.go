package keybot

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventKeyCreated        ActivityEventType = "key.created"
	ActivityEventKeyRegistered     ActivityEventType = "key.registered"
	ActivityEventRegisterRejected  ActivityEventType = "key.register.rejected"
	ActivityEventRegisterLostClaim ActivityEventType = "key.register.lost_claim"
)

// ActivityEvent captures audit-friendly information about a key command.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	KeyID      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// NewLogActivitySink writes every event to logger at info level
func NewLogActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		args := []any{
			"event", string(event.EventType),
			"user_id", event.UserID,
			"occurred_at", event.OccurredAt,
		}
		if event.KeyID != "" {
			args = append(args, "key_id", event.KeyID)
		}
		for k, v := range event.Metadata {
			args = append(args, k, v)
		}
		logger.Info("activity", args...)
		return nil
	})
}

// recordActivity stamps the event and hands it to sink. Sink failures are
// logged and never fail the command.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		logger.Warn("activity sink error", "event", string(event.EventType), "error", err)
	}
}
