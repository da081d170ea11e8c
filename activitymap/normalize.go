// Package activitymap flattens accounts.ActivityEvent values into a
// transport-agnostic record for audit logs and downstream consumers.
package activitymap

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-accounts"
)

const (
	MetadataKeyActorType  = "actor_type"
	MetadataKeyFromStatus = "from_email_status"
	MetadataKeyToStatus   = "to_email_status"
)

const (
	defaultChannel    = "accounts"
	defaultObjectType = "user"
	defaultActorID    = "system"
)

// Normalized is the flattened shape of an activity event
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Option func(*options)

type options struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

func WithObjectType(objectType string) Option {
	return func(o *options) {
		o.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback is used when neither the actor nor the user id is set,
// for example a login attempt for an unknown email
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		o.actorFallback = strings.TrimSpace(actorID)
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Normalize converts event. The actor id falls back to the user id, then to
// the configured fallback.
func Normalize(event accounts.ActivityEvent, opts ...Option) Normalized {
	o := buildOptions(opts)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now().UTC()
	}

	return Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.Actor.ID), strings.TrimSpace(event.UserID), o.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    o.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// NewSink returns an accounts.ActivitySink that normalizes every event
// before handing it to emit
func NewSink(emit func(context.Context, Normalized) error, opts ...Option) accounts.ActivitySink {
	return accounts.ActivitySinkFunc(func(ctx context.Context, event accounts.ActivityEvent) error {
		if emit == nil {
			return nil
		}
		return emit(ctx, Normalize(event, opts...))
	})
}

func buildOptions(opts []Option) options {
	o := options{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func normalizeMetadata(event accounts.ActivityEvent) map[string]any {
	var metadata map[string]any
	if len(event.Metadata) > 0 {
		metadata = maps.Clone(event.Metadata)
	}

	set := func(key, value string, overwrite bool) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; exists && !overwrite {
			return
		}
		metadata[key] = value
	}

	set(MetadataKeyActorType, strings.TrimSpace(event.Actor.Type), false)
	set(MetadataKeyFromStatus, string(event.FromStatus), true)
	set(MetadataKeyToStatus, string(event.ToStatus), true)

	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
