package accounts

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserRegistered     ActivityEventType = "user.registered"
	ActivityEventUserUpdated        ActivityEventType = "user.updated"
	ActivityEventUserDeleted        ActivityEventType = "user.deleted"
	ActivityEventEmailStatusChanged ActivityEventType = "user.email_status.changed"
	ActivityEventConfirmationSent   ActivityEventType = "user.email.confirmation_sent"
	ActivityEventLoginSuccess       ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure       ActivityEventType = "auth.login.failure"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus EmailStatus
	ToStatus   EmailStatus
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

// activityRecorder is shared by the services that emit events, sink
// failures are logged and swallowed.
type activityRecorder struct {
	sink   ActivitySink
	logger Logger
	now    func() time.Time
}

func (r activityRecorder) record(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = SystemActor
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now()
	}

	if err := normalizeActivitySink(r.sink).Record(ctx, event); err != nil {
		r.logger.Warn("activity sink error: event=%s err=%v", event.EventType, err)
	}
}
