package accounts

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionContext stores the verified session claims in ctx
func WithSessionContext(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, sessionCtxKey, claims)
}

// SessionFromContext returns the session claims stored by WithSessionContext
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(sessionCtxKey).(*SessionClaims)
	return claims, ok && claims != nil
}
