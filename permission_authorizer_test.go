package authz_test

import (
	"context"
	"errors"
	"testing"

	authz "github.com/goliatone/go-authz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionAuthorizer_Authorize(t *testing.T) {
	ctx := context.Background()

	userID := uuid.New()
	tenantOne := uuid.New()
	tenantTwo := uuid.New()

	store := &stubRoleStore{
		roles: map[uuid.UUID][]*authz.Role{
			tenantOne: {
				{ID: uuid.New(), TenantID: tenantOne, Name: "viewer", Permissions: []string{"orders.read"}},
			},
			tenantTwo: {
				{ID: uuid.New(), TenantID: tenantTwo, Name: "editor", Permissions: []string{"orders.write"}},
			},
		},
	}

	authorizer := authz.NewPermissionAuthorizer(store).WithLogger(discardLogger{})

	claims := func(tenant uuid.UUID, perms ...string) *authz.TenantClaims {
		return &authz.TenantClaims{
			UID:      userID.String(),
			TenantID: tenant.String(),
			Perms:    perms,
		}
	}

	t.Run("permission held through a role in the tenant succeeds", func(t *testing.T) {
		decision, err := authorizer.Authorize(ctx, claims(tenantOne), "orders.read", tenantOne)
		require.NoError(t, err)
		assert.Equal(t, authz.Succeed, decision)
	})

	t.Run("permission held only in another tenant is denied", func(t *testing.T) {
		// the caller holds orders.write through tenant two; asking within
		// tenant one must fail
		decision, err := authorizer.Authorize(ctx, claims(tenantOne), "orders.write", tenantOne)
		require.NoError(t, err)
		assert.Equal(t, authz.Fail, decision)
	})

	t.Run("permission missing everywhere is denied", func(t *testing.T) {
		decision, err := authorizer.Authorize(ctx, claims(tenantOne), "orders.delete", tenantOne)
		require.NoError(t, err)
		assert.Equal(t, authz.Fail, decision)
	})

	t.Run("minted permissions are trusted for the token's own tenant", func(t *testing.T) {
		empty := authz.NewPermissionAuthorizer(&stubRoleStore{}).WithLogger(discardLogger{})

		decision, err := empty.Authorize(ctx, claims(tenantOne, "orders.read"), "orders.read", tenantOne)
		require.NoError(t, err)
		assert.Equal(t, authz.Succeed, decision)
	})

	t.Run("minted permissions are ignored for a different tenant", func(t *testing.T) {
		empty := authz.NewPermissionAuthorizer(&stubRoleStore{}).WithLogger(discardLogger{})

		// token minted for tenant one carries orders.read; that embedded set
		// must not satisfy a check within tenant two
		decision, err := empty.Authorize(ctx, claims(tenantOne, "orders.read"), "orders.read", tenantTwo)
		require.NoError(t, err)
		assert.Equal(t, authz.Fail, decision)
	})

	t.Run("nil claims, empty permission, and nil tenant are denied", func(t *testing.T) {
		decision, err := authorizer.Authorize(ctx, nil, "orders.read", tenantOne)
		require.NoError(t, err)
		assert.Equal(t, authz.Fail, decision)

		decision, err = authorizer.Authorize(ctx, claims(tenantOne), "", tenantOne)
		require.NoError(t, err)
		assert.Equal(t, authz.Fail, decision)

		decision, err = authorizer.Authorize(ctx, claims(tenantOne), "orders.read", uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, authz.Fail, decision)
	})

	t.Run("store failure surfaces as error, never as denial", func(t *testing.T) {
		broken := authz.NewPermissionAuthorizer(&stubRoleStore{err: errors.New("connection refused")}).
			WithLogger(discardLogger{})

		// the claims carry no minted permissions so the store is consulted
		decision, err := broken.Authorize(ctx, claims(tenantOne), "orders.read", tenantOne)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to resolve tenant roles")
		assert.Equal(t, authz.Fail, decision)
	})

	t.Run("roles leaked from another tenant are skipped", func(t *testing.T) {
		// a store bug hands back a role scoped to a different tenant; the
		// authorizer still refuses to use it
		leaky := &stubRoleStore{
			roles: map[uuid.UUID][]*authz.Role{
				tenantOne: {
					{ID: uuid.New(), TenantID: tenantTwo, Name: "editor", Permissions: []string{"orders.write"}},
					nil,
				},
			},
		}

		decision, err := authz.NewPermissionAuthorizer(leaky).WithLogger(discardLogger{}).
			Authorize(ctx, claims(tenantOne), "orders.write", tenantOne)
		require.NoError(t, err)
		assert.Equal(t, authz.Fail, decision)
	})
}
