package gate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authz "github.com/goliatone/go-authz"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubContext satisfies router.Context for the gate internals, which only
// read the standard context from it.
type routerContext = router.Context

type stubContext struct {
	routerContext
}

func (stubContext) Context() context.Context {
	return context.Background()
}

type countingRoleStore struct {
	calls int32
	roles []*authz.Role
	err   error
}

func (s *countingRoleStore) ResolveTenantRoles(ctx context.Context, userID, tenantID uuid.UUID) ([]*authz.Role, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.roles, nil
}

func tenantClaims(userID, tenantID uuid.UUID, perms ...string) *authz.TenantClaims {
	return &authz.TenantClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
		UID:              userID.String(),
		TenantID:         tenantID.String(),
		Perms:            perms,
	}
}

func TestRunGates(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	t.Run("missing tenant fails before any permission lookup", func(t *testing.T) {
		store := &countingRoleStore{}
		cfg := Config{
			Tenants:     authz.NewTenantAuthorizer(),
			Permissions: authz.NewPermissionAuthorizer(store),
		}

		claims := &authz.TenantClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
			UID:              userID.String(),
		}

		err := cfg.runGates(stubContext{}, claims, Requirement{Permission: "orders.read", TenantRequired: true})
		require.Error(t, err)
		assert.ErrorIs(t, err, authz.ErrTenantRequired)
		assert.Zero(t, atomic.LoadInt32(&store.calls))
	})

	t.Run("valid tenant without the permission is denied", func(t *testing.T) {
		store := &countingRoleStore{}
		cfg := Config{
			Tenants:     authz.NewTenantAuthorizer(),
			Permissions: authz.NewPermissionAuthorizer(store),
		}

		err := cfg.runGates(stubContext{}, tenantClaims(userID, tenantID), Requirement{Permission: "orders.read", TenantRequired: true})
		require.Error(t, err)
		assert.ErrorIs(t, err, authz.ErrPermissionDenied)
		assert.Equal(t, int32(1), atomic.LoadInt32(&store.calls))
	})

	t.Run("role backed permission passes", func(t *testing.T) {
		store := &countingRoleStore{
			roles: []*authz.Role{{
				ID:          uuid.New(),
				TenantID:    tenantID,
				Name:        "viewer",
				Permissions: []string{"orders.read"},
			}},
		}
		cfg := Config{
			Tenants:     authz.NewTenantAuthorizer(),
			Permissions: authz.NewPermissionAuthorizer(store),
		}

		err := cfg.runGates(stubContext{}, tenantClaims(userID, tenantID), Requirement{Permission: "orders.read", TenantRequired: true})
		assert.NoError(t, err)
	})

	t.Run("minted permission skips the role store", func(t *testing.T) {
		store := &countingRoleStore{}
		cfg := Config{
			Tenants:     authz.NewTenantAuthorizer(),
			Permissions: authz.NewPermissionAuthorizer(store),
		}

		err := cfg.runGates(stubContext{}, tenantClaims(userID, tenantID, "orders.read"), Requirement{Permission: "orders.read", TenantRequired: true})
		assert.NoError(t, err)
		assert.Zero(t, atomic.LoadInt32(&store.calls))
	})

	t.Run("role store failure surfaces as an error not a denial", func(t *testing.T) {
		store := &countingRoleStore{err: assert.AnError}
		cfg := Config{
			Tenants:     authz.NewTenantAuthorizer(),
			Permissions: authz.NewPermissionAuthorizer(store),
		}

		err := cfg.runGates(stubContext{}, tenantClaims(userID, tenantID), Requirement{Permission: "orders.read", TenantRequired: true})
		require.Error(t, err)
		assert.NotErrorIs(t, err, authz.ErrPermissionDenied)
		assert.NotErrorIs(t, err, authz.ErrTenantRequired)
		assert.Contains(t, err.Error(), "failed to resolve tenant roles")
	})

	t.Run("tenant only requirement needs no permission authorizer", func(t *testing.T) {
		cfg := Config{Tenants: authz.NewTenantAuthorizer()}

		err := cfg.runGates(stubContext{}, tenantClaims(userID, tenantID), Requirement{TenantRequired: true})
		assert.NoError(t, err)
	})

	t.Run("empty requirement passes without consulting the gates", func(t *testing.T) {
		cfg := Config{}

		err := cfg.runGates(stubContext{}, nil, Requirement{})
		assert.NoError(t, err)
	})

	t.Run("permission without a configured authorizer is a config error", func(t *testing.T) {
		cfg := Config{Tenants: authz.NewTenantAuthorizer()}

		err := cfg.runGates(stubContext{}, tenantClaims(userID, tenantID), Requirement{Permission: "orders.read", TenantRequired: true})
		require.Error(t, err)
		assert.NotErrorIs(t, err, authz.ErrPermissionDenied)
		assert.Contains(t, err.Error(), "no permission authorizer")
	})
}

func TestValidateToken(t *testing.T) {
	signingKey := []byte("test-secret")
	userID := uuid.New()
	tenantID := uuid.New()

	signedToken := func(t *testing.T, expiresAt time.Time) string {
		t.Helper()
		claims := tenantClaims(userID, tenantID, "orders.read")
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
		require.NoError(t, err)
		return raw
	}

	newConfig := func() Config {
		return GetDefaultConfig(Config{
			SigningKey: SigningKey{Key: signingKey, JWTAlg: jwt.SigningMethodHS256.Alg()},
		})
	}

	t.Run("valid token yields the embedded claims", func(t *testing.T) {
		cfg := newConfig()

		claims, err := cfg.validateToken(signedToken(t, time.Now().Add(time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID())
		assert.Equal(t, tenantID.String(), claims.Tenant())
		assert.True(t, claims.HasPermission("orders.read"))
	})

	t.Run("expired token maps to the expiry error", func(t *testing.T) {
		cfg := newConfig()

		_, err := cfg.validateToken(signedToken(t, time.Now().Add(-time.Hour)))
		require.Error(t, err)
		assert.ErrorIs(t, err, authz.ErrTokenExpired)
	})

	t.Run("garbage maps to the malformed error", func(t *testing.T) {
		cfg := newConfig()

		_, err := cfg.validateToken("not.a.token")
		require.Error(t, err)
		assert.ErrorIs(t, err, authz.ErrTokenMalformed)
	})

	t.Run("a token signed with another key is rejected", func(t *testing.T) {
		cfg := GetDefaultConfig(Config{
			SigningKey: SigningKey{Key: []byte("other-secret"), JWTAlg: jwt.SigningMethodHS256.Alg()},
		})

		_, err := cfg.validateToken(signedToken(t, time.Now().Add(time.Hour)))
		require.Error(t, err)
		assert.ErrorIs(t, err, authz.ErrTokenMalformed)
	})
}
