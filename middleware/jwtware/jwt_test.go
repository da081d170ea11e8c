package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

type ctxKey struct{}

var signingKey = []byte("test-secret")

func generateToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	require.NoError(t, err)
	return signed
}

func hmacValidator() jwtware.TokenValidator {
	return jwtware.ValidatorFunc(func(raw string) (jwt.Claims, error) {
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return signingKey, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

func newApp(cfg jwtware.Config) *fiber.App {
	app := fiber.New()
	app.Get("/protected", jwtware.New(cfg), func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(jwt.Claims)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		sub, _ := claims.GetSubject()
		if v, ok := c.UserContext().Value(ctxKey{}).(string); ok {
			sub = sub + ":" + v
		}
		return c.SendString(sub)
	})
	return app
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	app := newApp(jwtware.Config{TokenValidator: hmacValidator()})
	token := generateToken(t, jwt.MapClaims{"sub": "12345"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestJWTWare_MissingToken(t *testing.T) {
	app := newApp(jwtware.Config{TokenValidator: hmacValidator()})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestJWTWare_WrongScheme(t *testing.T) {
	app := newApp(jwtware.Config{TokenValidator: hmacValidator()})
	token := generateToken(t, jwt.MapClaims{"sub": "12345"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Basic "+token)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestJWTWare_InvalidSignature(t *testing.T) {
	app := newApp(jwtware.Config{TokenValidator: hmacValidator()})

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "12345"})
	signed, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signed)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestJWTWare_CookieLookupAndContextEnricher(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: hmacValidator(),
		TokenLookup:    "header:Authorization,cookie:jwt",
		ContextEnricher: func(ctx context.Context, claims jwt.Claims) context.Context {
			return context.WithValue(ctx, ctxKey{}, "enriched")
		},
	})
	token := generateToken(t, jwt.MapClaims{"sub": "abc"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})

	res, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "abc:enriched", string(body))
}

func TestJWTWare_ValidationListenerRejects(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: hmacValidator(),
		ValidationListeners: []jwtware.ValidationListener{
			func(c *fiber.Ctx, claims jwt.Claims) error {
				return errors.New("blocked")
			},
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusForbidden).SendString(err.Error())
		},
	})
	token := generateToken(t, jwt.MapClaims{"sub": "12345"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
}

func TestJWTWare_FilterSkipsValidation(t *testing.T) {
	app := fiber.New()
	app.Get("/open", jwtware.New(jwtware.Config{
		TokenValidator: hmacValidator(),
		Filter:         func(c *fiber.Ctx) bool { return true },
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, res.StatusCode)
}
