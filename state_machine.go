package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeTerminalState = "TERMINAL_EMAIL_STATUS"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid email status transition", goerrors.CategoryConflict).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// ErrTerminalState is returned when attempting to move away from VERIFIED.
var ErrTerminalState = goerrors.New("email status is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// IsInvalidTransition reports whether err was raised by the state machine
func IsInvalidTransition(err error) bool {
	return hasTextCode(err, TextCodeInvalidTransition) || hasTextCode(err, textCodeTerminalState)
}

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// SystemActor is used when no caller identity is available
var SystemActor = ActorRef{Type: "system"}

// UserActor references the account owner
func UserActor(id string) ActorRef {
	return ActorRef{ID: id, Type: "user"}
}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor ActorRef
	User  *User
	From  EmailStatus
	To    EmailStatus
	Meta  TransitionMetadata
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// ApplyFunc persists the user carrying the target status
type ApplyFunc func(ctx context.Context, user *User) (*User, error)

// TransitionHookPhase identifies whether a hook ran before or after persistence.
type TransitionHookPhase string

const (
	HookPhaseBefore TransitionHookPhase = "before_transition"
	HookPhaseAfter  TransitionHookPhase = "after_transition"
)

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// EmailStateMachine enforces the UNVERIFIED -> PENDING -> VERIFIED lifecycle.
type EmailStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, user *User, target EmailStatus, apply ApplyFunc, opts ...TransitionOption) (*User, error)
	CanTransition(from, to EmailStatus) bool
	CurrentStatus(user *User) EmailStatus
}

// HookErrorHandler handles errors surfaced by transition hooks.
type HookErrorHandler func(ctx context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*emailStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *emailStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish status changes.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *emailStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineHookErrorHandler overrides how hook failures are propagated.
// The default handler returns the hook error unchanged.
func WithStateMachineHookErrorHandler(handler HookErrorHandler) StateMachineOption {
	return func(sm *emailStateMachine) {
		if handler != nil {
			sm.hookErrorHandler = handler
		}
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *emailStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// NewEmailStateMachine returns the default forward only implementation.
func NewEmailStateMachine(opts ...StateMachineOption) EmailStateMachine {
	sm := &emailStateMachine{
		transitions: map[EmailStatus]map[EmailStatus]struct{}{
			EmailStatusUnverified: {
				EmailStatusPending:  {},
				EmailStatusVerified: {},
			},
			EmailStatusPending: {
				EmailStatusVerified: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		hookErrorHandler: func(_ context.Context, _ TransitionHookPhase, err error, _ TransitionContext) error {
			return err
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type emailStateMachine struct {
	transitions      map[EmailStatus]map[EmailStatus]struct{}
	now              func() time.Time
	activitySink     ActivitySink
	logger           Logger
	hookErrorHandler HookErrorHandler
}

type transitionOptions struct {
	metadata    TransitionMetadata
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

func (sm *emailStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target EmailStatus, apply ApplyFunc, opts ...TransitionOption) (*User, error) {
	if user == nil {
		return nil, withMetadata(ErrInvalidTransition, map[string]any{
			"target": target,
			"reason": "user is nil",
		})
	}

	if !target.Valid() {
		return nil, withMetadata(ErrInvalidTransition, map[string]any{
			"target": target,
			"reason": "unknown target status",
		})
	}

	from := sm.CurrentStatus(user)
	if from == target {
		return user, nil
	}

	if from == EmailStatusVerified {
		return nil, withMetadata(ErrTerminalState, map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !sm.CanTransition(from, target) {
		return nil, withMetadata(ErrInvalidTransition, map[string]any{
			"from": from,
			"to":   target,
		})
	}

	options := sm.buildTransitionOptions(opts...)

	next := user.clone()
	next.EmailStatus = target

	ctxData := TransitionContext{
		Actor: actor,
		User:  next,
		From:  from,
		To:    target,
		Meta:  options.cloneMetadata(),
	}

	if err := sm.runHooks(ctx, options.beforeHooks, ctxData, HookPhaseBefore); err != nil {
		return nil, err
	}

	updated := next
	if apply != nil {
		var err error
		if updated, err = apply(ctx, next); err != nil {
			return nil, err
		}
	}

	ctxData.User = updated
	if err := sm.runHooks(ctx, options.afterHooks, ctxData, HookPhaseAfter); err != nil {
		return nil, err
	}

	recorder := activityRecorder{sink: sm.activitySink, logger: sm.logger, now: sm.now}
	recorder.record(ctx, ActivityEvent{
		EventType:  ActivityEventEmailStatusChanged,
		Actor:      actor,
		UserID:     updated.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   sm.transitionMetadata(ctxData.Meta),
	})

	return updated, nil
}

func (sm *emailStateMachine) CurrentStatus(user *User) EmailStatus {
	if user == nil {
		return ""
	}
	if user.EmailStatus == "" {
		return EmailStatusUnverified
	}
	return user.EmailStatus
}

func (sm *emailStateMachine) CanTransition(from, to EmailStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *emailStateMachine) runHooks(ctx context.Context, hooks []TransitionHook, data TransitionContext, phase TransitionHookPhase) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, data); err != nil {
			if sm.hookErrorHandler == nil {
				return err
			}
			return sm.hookErrorHandler(ctx, phase, err, data)
		}
	}
	return nil
}

func (sm *emailStateMachine) buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func (sm *emailStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
