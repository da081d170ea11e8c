package accounts

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// VerifyOptions tweak token verification
type VerifyOptions struct {
	// IgnoreExpiration skips exp/nbf/iat validation, the signature is still checked
	IgnoreExpiration bool
}

// TokenServiceImpl signs HS256 tokens with a single secret
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, issuer string, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
	}
}

// NewTokenServiceFromConfig reads the signing key and issuer from cfg
func NewTokenServiceFromConfig(cfg Config, logger Logger) *TokenServiceImpl {
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), logger)
}

// Sign signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) Sign(claims jwt.Claims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	if len(ts.signingKey) == 0 {
		return "", goerrors.New("signing key is not configured", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Verify parses tokenString into the given claims. Any failure is reported
// as ErrInvalidToken with the parser error as source.
func (ts *TokenServiceImpl) Verify(tokenString string, into jwt.Claims, opts VerifyOptions) error {
	if into == nil {
		return goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}

	if opts.IgnoreExpiration {
		parserOptions = append(parserOptions, jwt.WithoutClaimsValidation())
	} else if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, into, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("token service verify failed: %v", err)
		return invalidToken(err)
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}

func invalidToken(source error) error {
	e := ErrInvalidToken.Clone()
	e.Source = source
	return e
}
