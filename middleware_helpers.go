package accounts

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// SessionLocalsKey is where the bearer middleware stores the session claims
const SessionLocalsKey = "session"

// ValidationListener aliases the jwtware listener so consumers can use the
// helpers in this package directly.
type ValidationListener = jwtware.ValidationListener

// ErrMissingSession is returned for requests without a usable bearer token
var ErrMissingSession = goerrors.New("missing or invalid session token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("UNAUTHORIZED")

// SessionValidator verifies session tokens issued by the Authenticator.
// Expiration and issuer are enforced. A session always carries sub equal to
// its id, confirmation tokens carry no sub and are rejected.
func SessionValidator(tokens TokenService) jwtware.TokenValidator {
	return jwtware.ValidatorFunc(func(raw string) (jwt.Claims, error) {
		claims := &SessionClaims{}
		if err := tokens.Verify(raw, claims, VerifyOptions{}); err != nil {
			return nil, err
		}

		if claims.Subject == "" || claims.Subject != claims.UserID {
			return nil, withMetadata(ErrInvalidToken, map[string]any{"reason": "not a session token"})
		}

		return claims, nil
	})
}

// ContextEnricherAdapter stores session claims in the request context so
// handlers can call SessionFromContext.
func ContextEnricherAdapter(ctx context.Context, claims jwt.Claims) context.Context {
	session, ok := claims.(*SessionClaims)
	if !ok {
		return ctx
	}
	return WithSessionContext(ctx, session)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

// ProtectedRoute returns the bearer middleware. Every failure is reported
// through errorHandler as ErrMissingSession.
func ProtectedRoute(tokens TokenService, errorHandler fiber.ErrorHandler, listeners ...ValidationListener) fiber.Handler {
	cfg := jwtware.Config{
		TokenValidator:  SessionValidator(tokens),
		ContextKey:      SessionLocalsKey,
		ContextEnricher: ContextEnricherAdapter,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			missing := ErrMissingSession.Clone()
			missing.Source = err
			return errorHandler(c, missing)
		},
	}

	RegisterValidationListeners(&cfg, listeners...)

	return jwtware.New(cfg)
}

// SessionFromLocals returns the claims stored by ProtectedRoute
func SessionFromLocals(c *fiber.Ctx) (*SessionClaims, bool) {
	claims, ok := c.Locals(SessionLocalsKey).(*SessionClaims)
	return claims, ok && claims != nil
}
