package accounts

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Authenticator handles login and registration on top of Accounts
type Authenticator struct {
	accounts   Accounts
	hasher     PasswordHasher
	tokens     TokenService
	issuer     string
	sessionTTL time.Duration
	logger     Logger
	sink       ActivitySink
	now        func() time.Time
}

var _ AuthService = (*Authenticator)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(accounts Accounts, hasher PasswordHasher, tokens TokenService, opts Config) *Authenticator {
	return &Authenticator{
		accounts:   accounts,
		hasher:     hasher,
		tokens:     tokens,
		issuer:     opts.GetIssuer(),
		sessionTTL: time.Duration(opts.GetSessionTokenExpiration()) * time.Hour,
		logger:     defLogger{},
		sink:       noopActivitySink{},
		now:        time.Now,
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (a *Authenticator) WithActivitySink(sink ActivitySink) *Authenticator {
	a.sink = normalizeActivitySink(sink)
	return a
}

// WithClock overrides the clock used to stamp session tokens
func (a *Authenticator) WithClock(clock func() time.Time) *Authenticator {
	if clock != nil {
		a.now = clock
	}
	return a
}

// Login checks the credentials and issues a session token. Unknown email,
// wrong password and an unusable stored hash all fail with
// ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := a.accounts.FindByEmailWithSensitiveData(ctx, email)
	if err != nil {
		a.logger.Error("login lookup error: %v", err)
		return nil, err
	}

	if user == nil {
		a.loginFailed(ctx, "", email, "unknown email")
		return nil, ErrInvalidCredentials
	}

	if err := a.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if !IsInvalidCredentials(err) {
			a.logger.Error("login stored hash unusable: user=%s err=%v", user.ID, err)
		}
		a.loginFailed(ctx, user.ID.String(), email, "password mismatch")
		return nil, ErrInvalidCredentials
	}

	view := user.UserView
	token, err := a.sessionToken(&view)
	if err != nil {
		a.loginFailed(ctx, user.ID.String(), email, err.Error())
		return nil, err
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     UserActor(user.ID.String()),
		UserID:    user.ID.String(),
	})

	return &LoginResult{
		Token: token,
		User:  view,
	}, nil
}

// Register creates the account and sends the confirmation email. When the
// email cannot be delivered the account still exists as UNVERIFIED and the
// error is returned, ResendConfirmation recovers from there.
func (a *Authenticator) Register(ctx context.Context, registration Registration) (*UserView, error) {
	created, err := a.accounts.Create(ctx, registration)
	if err != nil {
		return nil, err
	}

	if err := a.accounts.SendConfirmationEmail(ctx, created.ID); err != nil {
		a.logger.Warn("registration confirmation email failed: user=%s err=%v", created.ID, err)
		return nil, err
	}

	return created, nil
}

// ResendConfirmation sends a fresh confirmation email to an account that is
// not VERIFIED yet
func (a *Authenticator) ResendConfirmation(ctx context.Context, id uuid.UUID) error {
	return a.accounts.SendConfirmationEmail(ctx, id)
}

func (a *Authenticator) sessionToken(user *UserView) (string, error) {
	now := a.now()
	claims := newSessionClaims(user)
	claims.IssuedAt = jwt.NewNumericDate(now)

	if a.issuer != "" {
		claims.Issuer = a.issuer
	}

	if a.sessionTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.sessionTTL))
	}

	return a.tokens.Sign(claims)
}

func (a *Authenticator) loginFailed(ctx context.Context, userID, email, reason string) {
	actor := ActorRef{Type: "unknown"}
	if userID != "" {
		actor = UserActor(userID)
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     actor,
		UserID:    userID,
		Metadata: map[string]any{
			"email":  email,
			"reason": reason,
		},
	})
}

func (a *Authenticator) record(ctx context.Context, event ActivityEvent) {
	activityRecorder{sink: a.sink, logger: a.logger, now: a.now}.record(ctx, event)
}
