package authz

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService issues and validates signed bearer tokens. Token validity is
// self-contained: signature plus expiry, never a server-side lookup.
type TokenService interface {
	Issue(claims *TenantClaims, ttl time.Duration) (string, time.Time, error)
	SignClaims(claims *TenantClaims) (string, error)
	Validate(tokenString string) (ClaimSet, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	secrets  SecretProvider
	issuer   string
	audience jwt.ClaimStrings
	now      Clock
	logger   Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(secrets SecretProvider, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		secrets:  secrets,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock injects a custom clock (useful for tests).
func (ts *TokenServiceImpl) WithClock(clock Clock) *TokenServiceImpl {
	if clock != nil {
		ts.now = clock
	}
	return ts
}

// Issue stamps the claim set with issued-at and expiry from a single clock
// read, signs it, and returns the token with its absolute expiry. A zero or
// negative ttl is rejected.
func (ts *TokenServiceImpl) Issue(claims *TenantClaims, ttl time.Duration) (string, time.Time, error) {
	if claims == nil {
		return "", time.Time{}, errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if ttl <= 0 {
		return "", time.Time{}, ErrInvalidTokenTTL.Clone().WithMetadata(map[string]any{
			"ttl": ttl.String(),
		})
	}

	issuedAt := ts.now()
	expiresAt := issuedAt.Add(ttl)

	if claims.RegisteredClaims.Issuer == "" {
		claims.RegisteredClaims.Issuer = ts.issuer
	}
	if len(claims.RegisteredClaims.Audience) == 0 && len(ts.audience) > 0 {
		aud := make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
		claims.RegisteredClaims.Audience = aud
	}

	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	ensureTokenID(&claims.RegisteredClaims)

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// SignClaims signs arbitrary claims using the configured signing secret.
func (ts *TokenServiceImpl) SignClaims(claims *TenantClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.secrets.SigningSecret())
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning the claim set
func (ts *TokenServiceImpl) Validate(tokenString string) (ClaimSet, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(func() time.Time { return ts.now() }))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TenantClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secrets.SigningSecret(), nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*TenantClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToMapClaims
}
