package accounts_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

type stubFeatureGate struct {
	enabled map[string]bool
	calls   []string
	err     error
}

func (s *stubFeatureGate) Enabled(ctx context.Context, key string, opts ...gate.ResolveOption) (bool, error) {
	s.calls = append(s.calls, key)
	if s.err != nil {
		return false, s.err
	}
	enabled, ok := s.enabled[key]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

func TestRegisterUserHandlerFeatureGateDeniesSignup(t *testing.T) {
	stubGate := &stubFeatureGate{
		enabled: map[string]bool{gate.FeatureUsersSignup: false},
	}

	authService := new(MockAuthService)
	handler := accounts.NewRegisterUserHandler(authService).WithFeatureGate(stubGate)

	err := handler.Execute(context.Background(), accounts.RegisterUserMessage{})
	require.ErrorIs(t, err, accounts.ErrSignupDisabled)
	require.Equal(t, []string{gate.FeatureUsersSignup}, stubGate.calls)
	authService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegisterUserHandlerFeatureGateAllowsSignup(t *testing.T) {
	stubGate := &stubFeatureGate{
		enabled: map[string]bool{gate.FeatureUsersSignup: true},
	}

	authService := new(MockAuthService)
	authService.On("Register", mock.Anything, mock.Anything).
		Return(&accounts.UserView{Email: "gate@example.com"}, nil).Once()

	handler := accounts.NewRegisterUserHandler(authService).WithFeatureGate(stubGate)

	err := handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Email:    "gate@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	authService.AssertExpectations(t)
}

func TestHTTP_RegisterSignupDisabled(t *testing.T) {
	f := newFixture(t)

	app := fiber.New(fiber.Config{ErrorHandler: accounts.ErrorHandler(nopLogger{}, false)})
	accounts.RegisterAccountRoutes(app,
		accounts.WithHTTPAuthService(f.auth),
		accounts.WithHTTPAccounts(f.manager),
		accounts.WithHTTPTokenService(f.tokens),
		accounts.WithHTTPLogger(nopLogger{}),
		accounts.WithHTTPFeatureGate(&stubFeatureGate{
			enabled: map[string]bool{gate.FeatureUsersSignup: false},
		}),
	)

	res := call(t, app, http.MethodPost, "/auth/register", map[string]string{
		"email":    "blocked@example.com",
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusForbidden, res.status)
	require.Equal(t, "SIGNUP_DISABLED", res.errorField("text_code"))
	f.mailer.AssertNotCalled(t, "SendConfirmAccountMail", mock.Anything, mock.Anything)
}
