package authz_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authz "github.com/goliatone/go-authz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIdentity(id string) *MockIdentity {
	identity := &MockIdentity{}
	identity.On("ID").Return(id)
	return identity
}

func TestTokenService_Issue(t *testing.T) {
	secret := authz.StaticSecret("test-signing-key")
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tenantID := uuid.New()

	service := authz.NewTokenService(secret, "test-issuer", jwt.ClaimStrings{"test-audience"}, discardLogger{}).
		WithClock(staticClock(issuedAt))

	t.Run("stamps issued at and expiry from a single clock read", func(t *testing.T) {
		claims := authz.NewTenantClaims(newTestIdentity("user-123"), tenantID, []string{"orders.read"})

		token, expiresAt, err := service.Issue(claims, 2*time.Hour)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, issuedAt.Add(2*time.Hour), expiresAt)
		assert.Equal(t, issuedAt, claims.IssuedAt())
		assert.Equal(t, issuedAt.Add(2*time.Hour), claims.Expires())
		assert.True(t, claims.Expires().After(claims.IssuedAt()))
	})

	t.Run("fills issuer, audience, and token id defaults", func(t *testing.T) {
		claims := authz.NewTenantClaims(newTestIdentity("user-123"), tenantID, nil)

		_, _, err := service.Issue(claims, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "test-issuer", claims.RegisteredClaims.Issuer)
		assert.Equal(t, jwt.ClaimStrings{"test-audience"}, claims.RegisteredClaims.Audience)
		assert.NotEmpty(t, claims.RegisteredClaims.ID)
	})

	t.Run("rejects zero ttl", func(t *testing.T) {
		claims := authz.NewTenantClaims(newTestIdentity("user-123"), tenantID, nil)

		_, _, err := service.Issue(claims, 0)
		assert.Error(t, err)
	})

	t.Run("rejects negative ttl", func(t *testing.T) {
		claims := authz.NewTenantClaims(newTestIdentity("user-123"), tenantID, nil)

		_, _, err := service.Issue(claims, -time.Minute)
		assert.Error(t, err)
	})

	t.Run("rejects nil claims", func(t *testing.T) {
		_, _, err := service.Issue(nil, time.Hour)
		assert.Error(t, err)
	})
}

func TestTokenService_Validate(t *testing.T) {
	secret := authz.StaticSecret("test-signing-key")
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tenantID := uuid.New()

	service := authz.NewTokenService(secret, "test-issuer", jwt.ClaimStrings{"test-audience"}, discardLogger{}).
		WithClock(staticClock(issuedAt))

	issue := func(t *testing.T, ttl time.Duration, perms []string) string {
		t.Helper()
		claims := authz.NewTenantClaims(newTestIdentity("user-123"), tenantID, perms)
		token, _, err := service.Issue(claims, ttl)
		require.NoError(t, err)
		return token
	}

	t.Run("round trips an issued token", func(t *testing.T) {
		token := issue(t, time.Hour, []string{"orders.read", "orders.write"})

		claims, err := service.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.Subject())
		assert.Equal(t, "user-123", claims.UserID())
		assert.Equal(t, tenantID.String(), claims.Tenant())
		assert.Equal(t, []string{"orders.read", "orders.write"}, claims.Permissions())
		assert.True(t, claims.HasPermission("orders.read"))
		assert.False(t, claims.HasPermission("orders.delete"))
		// parsed times come back in a different location; compare instants
		assert.True(t, claims.Expires().Equal(issuedAt.Add(time.Hour)))
	})

	t.Run("expired token fails with the expiry error", func(t *testing.T) {
		token := issue(t, time.Hour, nil)

		late := authz.NewTokenService(secret, "test-issuer", jwt.ClaimStrings{"test-audience"}, discardLogger{}).
			WithClock(staticClock(issuedAt.Add(2 * time.Hour)))

		_, err := late.Validate(token)
		require.Error(t, err)
		assert.True(t, authz.IsTokenExpiredError(err))
	})

	t.Run("token valid right up to its expiry boundary", func(t *testing.T) {
		token := issue(t, time.Hour, nil)

		almost := authz.NewTokenService(secret, "test-issuer", jwt.ClaimStrings{"test-audience"}, discardLogger{}).
			WithClock(staticClock(issuedAt.Add(time.Hour - time.Second)))

		_, err := almost.Validate(token)
		assert.NoError(t, err)
	})

	t.Run("tampered token fails as malformed", func(t *testing.T) {
		token := issue(t, time.Hour, nil)
		tampered := token[:len(token)-4] + "abcd"

		_, err := service.Validate(tampered)
		require.Error(t, err)
		assert.True(t, authz.IsMalformedError(err))
	})

	t.Run("token signed with a different key fails", func(t *testing.T) {
		other := authz.NewTokenService(authz.StaticSecret("other-key"), "test-issuer", jwt.ClaimStrings{"test-audience"}, discardLogger{}).
			WithClock(staticClock(issuedAt))
		claims := authz.NewTenantClaims(newTestIdentity("user-123"), tenantID, nil)
		token, _, err := other.Issue(claims, time.Hour)
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.Error(t, err)
	})

	t.Run("garbage input fails", func(t *testing.T) {
		_, err := service.Validate("not-a-jwt")
		assert.Error(t, err)
	})

	t.Run("wrong issuer fails", func(t *testing.T) {
		other := authz.NewTokenService(secret, "impostor", jwt.ClaimStrings{"test-audience"}, discardLogger{}).
			WithClock(staticClock(issuedAt))
		claims := authz.NewTenantClaims(newTestIdentity("user-123"), tenantID, nil)
		token, _, err := other.Issue(claims, time.Hour)
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.Error(t, err)
	})
}
