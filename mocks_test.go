package accounts_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-accounts"
)

const testSigningKey = "test-signing-key"

// MockMailer implements accounts.MailSender
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendConfirmAccountMail(ctx context.Context, mail accounts.ConfirmAccountMail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

// MockAccounts implements accounts.Accounts
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) FindByID(ctx context.Context, id uuid.UUID) (*accounts.UserView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.UserView), args.Error(1)
}

func (m *MockAccounts) FindByEmail(ctx context.Context, email string) (*accounts.UserView, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.UserView), args.Error(1)
}

func (m *MockAccounts) FindByEmailWithSensitiveData(ctx context.Context, email string) (*accounts.SensitiveUser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.SensitiveUser), args.Error(1)
}

func (m *MockAccounts) GetExisting(ctx context.Context, id uuid.UUID) (*accounts.UserView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.UserView), args.Error(1)
}

func (m *MockAccounts) Create(ctx context.Context, registration accounts.Registration) (*accounts.UserView, error) {
	args := m.Called(ctx, registration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.UserView), args.Error(1)
}

func (m *MockAccounts) Update(ctx context.Context, id uuid.UUID, patch accounts.UserPatch) (*accounts.UserView, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.UserView), args.Error(1)
}

func (m *MockAccounts) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) SendConfirmationEmail(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) ConfirmEmail(ctx context.Context, id uuid.UUID, token string) (*accounts.UserView, error) {
	args := m.Called(ctx, id, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.UserView), args.Error(1)
}

// MockAuthService implements accounts.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*accounts.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.LoginResult), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, registration accounts.Registration) (*accounts.UserView, error) {
	args := m.Called(ctx, registration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.UserView), args.Error(1)
}

func (m *MockAuthService) ResendConfirmation(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockConfig implements accounts.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSessionTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetProjectURL() string {
	args := m.Called()
	return args.String(0)
}

func newMockConfig(ttl int) *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return(testSigningKey).Maybe()
	cfg.On("GetIssuer").Return("test-issuer").Maybe()
	cfg.On("GetSessionTokenExpiration").Return(ttl).Maybe()
	cfg.On("GetProjectURL").Return("https://accounts.test").Maybe()
	return cfg
}

// recordingSink keeps every activity event it receives
type recordingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []accounts.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) Last(eventType accounts.ActivityEventType) (accounts.ActivityEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].EventType == eventType {
			return s.events[i], true
		}
	}
	return accounts.ActivityEvent{}, false
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// newTestDB opens a migrated sqlite database in the test temp dir
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "accounts.db")
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = accounts.Migrate(context.Background(), sqldb, "sqlite", nopLogger{})
	require.NoError(t, err)

	return db
}

type fixture struct {
	db      *bun.DB
	repo    accounts.RepositoryManager
	hasher  accounts.PasswordHasher
	tokens  *accounts.TokenServiceImpl
	mailer  *MockMailer
	sink    *recordingSink
	manager *accounts.UserManager
	auth    *accounts.Authenticator
	sent    []accounts.ConfirmAccountMail
	mu      sync.Mutex
}

// newFixture wires the real store, hasher and token service. The mailer
// records every mail and succeeds unless the test overrides it.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db:     newTestDB(t),
		hasher: accounts.NewBcryptHasher(4),
		tokens: accounts.NewTokenService([]byte(testSigningKey), "test-issuer", nopLogger{}),
		mailer: new(MockMailer),
		sink:   &recordingSink{},
	}

	f.repo = accounts.NewRepositoryManager(f.db)
	f.manager = accounts.NewUserManager(f.repo, f.hasher, f.tokens, f.mailer, "https://accounts.test/",
		accounts.WithUserManagerLogger(nopLogger{}),
		accounts.WithUserManagerActivitySink(f.sink),
	)
	f.auth = accounts.NewAuthenticator(f.manager, f.hasher, f.tokens, newMockConfig(1)).
		WithLogger(nopLogger{}).
		WithActivitySink(f.sink)

	return f
}

// deliverAll makes the mailer succeed and keep the mails
func (f *fixture) deliverAll() {
	f.mailer.On("SendConfirmAccountMail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sent = append(f.sent, args.Get(1).(accounts.ConfirmAccountMail))
		}).
		Return(nil)
}

func (f *fixture) lastMail(t *testing.T) accounts.ConfirmAccountMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no confirmation mail sent")
	return f.sent[len(f.sent)-1]
}

// tokenFromURL returns the last path segment of a confirmation URL
func tokenFromURL(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
