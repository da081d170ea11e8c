package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserManager owns the user lifecycle: lookups, create/update/delete and
// the email confirmation workflow.
type UserManager struct {
	repo       RepositoryManager
	hasher     PasswordHasher
	tokens     TokenService
	mailer     MailSender
	projectURL string
	states     EmailStateMachine
	logger     Logger
	sink       ActivitySink
	now        func() time.Time
}

var _ Accounts = (*UserManager)(nil)

// UserManagerOption customizes the UserManager
type UserManagerOption func(*UserManager)

// WithUserManagerLogger sets the logger
func WithUserManagerLogger(logger Logger) UserManagerOption {
	return func(m *UserManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithUserManagerActivitySink sets the sink receiving lifecycle events
func WithUserManagerActivitySink(sink ActivitySink) UserManagerOption {
	return func(m *UserManager) {
		m.sink = normalizeActivitySink(sink)
	}
}

// WithUserManagerStateMachine replaces the default email state machine
func WithUserManagerStateMachine(sm EmailStateMachine) UserManagerOption {
	return func(m *UserManager) {
		if sm != nil {
			m.states = sm
		}
	}
}

// WithUserManagerClock injects a custom clock (useful for tests)
func WithUserManagerClock(clock func() time.Time) UserManagerOption {
	return func(m *UserManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// NewUserManager creates a UserManager. projectURL is the public base URL
// used to build confirmation links.
func NewUserManager(repo RepositoryManager, hasher PasswordHasher, tokens TokenService, mailer MailSender, projectURL string, opts ...UserManagerOption) *UserManager {
	m := &UserManager{
		repo:       repo,
		hasher:     hasher,
		tokens:     tokens,
		mailer:     mailer,
		projectURL: strings.TrimRight(projectURL, "/"),
		logger:     defLogger{},
		sink:       noopActivitySink{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.states == nil {
		m.states = NewEmailStateMachine(
			WithStateMachineActivitySink(m.sink),
			WithStateMachineLogger(m.logger),
			WithStateMachineClock(m.now),
		)
	}

	return m
}

// FindByID returns nil when no user matches
func (m *UserManager) FindByID(ctx context.Context, id uuid.UUID) (*UserView, error) {
	user, err := m.repo.Users().GetByID(ctx, id)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user.View(), nil
}

// FindByEmail returns nil when no user matches
func (m *UserManager) FindByEmail(ctx context.Context, email string) (*UserView, error) {
	user, err := m.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user.View(), nil
}

// FindByEmailWithSensitiveData includes the password hash, it exists for
// credential checks only
func (m *UserManager) FindByEmailWithSensitiveData(ctx context.Context, email string) (*SensitiveUser, error) {
	user, err := m.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user.Sensitive(), nil
}

// GetExisting fails with ErrUserNotFound when the user does not exist
func (m *UserManager) GetExisting(ctx context.Context, id uuid.UUID) (*UserView, error) {
	user, err := m.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.View(), nil
}

// Create registers a new UNVERIFIED user. The email lookup is a fast path,
// the store unique constraint is what guards concurrent registrations.
func (m *UserManager) Create(ctx context.Context, registration Registration) (*UserView, error) {
	email := strings.TrimSpace(registration.Email)
	record := &User{
		ID:          registration.ID,
		Email:       email,
		Name:        registration.Name,
		EmailStatus: EmailStatusUnverified,
		CreatedAt:   m.timestamp(),
	}
	record.UpdatedAt = record.CreatedAt

	var created *User
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := m.repo.Users().GetByEmailTx(ctx, tx, email)
		if err == nil && existing != nil {
			return withMetadata(ErrEmailInUse, map[string]any{"email": email})
		}

		if err != nil && !IsUserNotFound(err) {
			return err
		}

		hash, err := m.hasher.HashPassword(registration.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}
		record.PasswordHash = hash

		created, err = m.repo.Users().CreateTx(ctx, tx, record)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    created.ID.String(),
		ToStatus:  created.EmailStatus,
	})

	return created.View(), nil
}

// Update merges the fields present in patch onto the current record.
// Status changes go through the email state machine.
func (m *UserManager) Update(ctx context.Context, id uuid.UUID, patch UserPatch) (*UserView, error) {
	updated, err := m.update(ctx, id, patch, SystemActor)
	if err != nil {
		return nil, err
	}
	return updated.View(), nil
}

// Delete removes the user permanently
func (m *UserManager) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := m.getExisting(ctx, id); err != nil {
		return err
	}

	if err := m.repo.Users().DeleteByID(ctx, id); err != nil {
		return err
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventUserDeleted,
		UserID:    id.String(),
	})

	return nil
}

// SendConfirmationEmail mints a token bound to the current id, email and
// creation time, delivers the link and moves the user to PENDING. Delivery
// failures leave the status untouched.
func (m *UserManager) SendConfirmationEmail(ctx context.Context, id uuid.UUID) error {
	user, err := m.getExisting(ctx, id)
	if err != nil {
		return err
	}

	if m.states.CurrentStatus(user) == EmailStatusVerified {
		return withMetadata(ErrEmailAlreadyVerified, map[string]any{"id": id.String()})
	}

	token, err := m.tokens.Sign(newConfirmationClaims(user.View()))
	if err != nil {
		return err
	}

	mail := ConfirmAccountMail{
		ConfirmationURL: m.ConfirmationURL(user.ID, token),
		To: []Recipient{
			{Email: user.Email, Name: user.Name},
		},
	}

	if err := m.mailer.SendConfirmAccountMail(ctx, mail); err != nil {
		m.logger.Error("confirmation email delivery failed: user=%s err=%v", id, err)
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver confirmation email")
	}

	if _, err := m.update(ctx, id, UserPatch{EmailStatus: Ptr(EmailStatusPending)}, SystemActor,
		WithTransitionReason("confirmation email sent"),
	); err != nil {
		return err
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventConfirmationSent,
		UserID:    id.String(),
	})

	return nil
}

// ConfirmEmail verifies a confirmation token and moves the user to VERIFIED.
// Token expiration is not enforced: the binding to id, email and creation
// time is what invalidates stale links.
func (m *UserManager) ConfirmEmail(ctx context.Context, id uuid.UUID, token string) (*UserView, error) {
	user, err := m.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	switch m.states.CurrentStatus(user) {
	case EmailStatusVerified:
		return nil, withMetadata(ErrEmailAlreadyVerified, map[string]any{"id": id.String()})
	case EmailStatusUnverified:
		return nil, withMetadata(ErrConfirmationNotRequested, map[string]any{"id": id.String()})
	}

	claims := &ConfirmationClaims{}
	if err := m.tokens.Verify(token, claims, VerifyOptions{IgnoreExpiration: true}); err != nil {
		return nil, withMetadata(ErrInvalidToken, map[string]any{"id": id.String()})
	}

	if !claims.Matches(user.View()) {
		m.logger.Debug("confirmation token binding mismatch: user=%s", id)
		return nil, withMetadata(ErrInvalidToken, map[string]any{"id": id.String()})
	}

	updated, err := m.update(ctx, id, UserPatch{EmailStatus: Ptr(EmailStatusVerified)}, UserActor(id.String()),
		WithTransitionReason("email confirmed"),
	)
	if err != nil {
		return nil, err
	}

	return updated.View(), nil
}

// ConfirmationURL builds <projectURL>/users/<id>/email/confirm/<token>
func (m *UserManager) ConfirmationURL(id uuid.UUID, token string) string {
	return fmt.Sprintf("%s/users/%s/email/confirm/%s", m.projectURL, id, token)
}

func (m *UserManager) getExisting(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := m.repo.Users().GetByID(ctx, id)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, withMetadata(ErrUserNotFound, map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return user, nil
}

func (m *UserManager) update(ctx context.Context, id uuid.UUID, patch UserPatch, actor ActorRef, opts ...TransitionOption) (*User, error) {
	current, err := m.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	next, changed, err := m.merge(current, patch)
	if err != nil {
		return nil, err
	}

	persist := func(ctx context.Context, u *User) (*User, error) {
		u.UpdatedAt = m.timestamp()
		return m.repo.Users().UpdateByID(ctx, id, u)
	}

	var updated *User
	if patch.EmailStatus != nil && *patch.EmailStatus != m.states.CurrentStatus(current) {
		updated, err = m.states.Transition(ctx, actor, next, *patch.EmailStatus, persist, opts...)
	} else {
		updated, err = persist(ctx, next)
	}

	if err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		m.record(ctx, ActivityEvent{
			EventType: ActivityEventUserUpdated,
			Actor:     actor,
			UserID:    id.String(),
			Metadata:  map[string]any{"fields": changed},
		})
	}

	return updated, nil
}

// merge applies the patch on a copy of current: present fields win, absent
// fields keep their value. The status is left to the state machine.
func (m *UserManager) merge(current *User, patch UserPatch) (*User, []string, error) {
	next := current.clone()
	changed := []string{}

	if patch.Name != nil {
		next.Name = *patch.Name
		changed = append(changed, "name")
	}

	if patch.Email != nil {
		next.Email = strings.TrimSpace(*patch.Email)
		changed = append(changed, "email")
	}

	if patch.Password != nil {
		hash, err := m.hasher.HashPassword(*patch.Password)
		if err != nil {
			return nil, nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}
		next.PasswordHash = hash
		changed = append(changed, "password")
	}

	return next, changed, nil
}

// timestamp truncates to microseconds so every supported store round-trips it
func (m *UserManager) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

func (m *UserManager) record(ctx context.Context, event ActivityEvent) {
	activityRecorder{sink: m.sink, logger: m.logger, now: m.now}.record(ctx, event)
}
