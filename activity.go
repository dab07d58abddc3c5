package session

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignInSuccess      ActivityEventType = "auth.signin.success"
	ActivityEventSignInFailure      ActivityEventType = "auth.signin.failure"
	ActivityEventAccountProvisioned ActivityEventType = "account.provisioned"
	ActivityEventAccountSuspended   ActivityEventType = "account.suspended"
	ActivityEventAccountReinstated  ActivityEventType = "account.reinstated"
	ActivityEventOrphanedSession    ActivityEventType = "session.orphaned"
)

// ActorRef identifies who performed an action, for audit purposes.
type ActorRef struct {
	ID    string
	Email string
	Role  string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	Email      string
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
