package starter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityEvent captures audit-friendly information about an account
// action.
type ActivityEvent struct {
	UserID     uuid.UUID
	Action     ActivityType
	IPAddress  string
	OccurredAt time.Time
}

// ActivitySink consumes activity events. The persistent implementation
// is the ActivityLogs repository; handlers treat the sink as
// append-only.
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

// RecordActivity is the helper handlers use to append one entry. The
// client IP is taken from the request context when present.
func RecordActivity(ctx context.Context, sink ActivitySink, userID uuid.UUID, action ActivityType) error {
	sink = normalizeActivitySink(sink)
	return sink.Record(ctx, ActivityEvent{
		UserID:     userID,
		Action:     action,
		IPAddress:  ClientIPFromContext(ctx),
		OccurredAt: time.Now(),
	})
}
