package authz

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// PermissionAuthorizer is the second gate: it succeeds iff the caller's
// effective permission set within the active tenant contains the required
// permission. The effective set is the union of permissions attached to
// every role the caller holds in that tenant; roles from other tenants never
// contribute, even when the caller legitimately holds them.
//
// The tenant gate must have succeeded for the same request before this gate
// runs; tenantID is the identifier it produced.
type PermissionAuthorizer struct {
	roles  RoleStore
	logger Logger
}

// NewPermissionAuthorizer returns a permission gate backed by the role
// projection.
func NewPermissionAuthorizer(roles RoleStore) *PermissionAuthorizer {
	return &PermissionAuthorizer{
		roles:  roles,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger.
func (a *PermissionAuthorizer) WithLogger(logger Logger) *PermissionAuthorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Authorize decides whether the caller may perform the required permission
// within the tenant. Matching is an exact string comparison. A role-store
// failure propagates as an error distinct from a denial; it is never mapped
// onto Fail.
func (a *PermissionAuthorizer) Authorize(ctx context.Context, claims ClaimSet, required string, tenantID uuid.UUID) (Decision, error) {
	if claims == nil || required == "" || tenantID == uuid.Nil {
		return Fail, nil
	}

	// tokens minted at login embed the effective permissions for the tenant
	// they were issued to; trust them only for that tenant
	if claimTenant, err := uuid.Parse(claims.Tenant()); err == nil && claimTenant == tenantID {
		if claims.HasPermission(required) {
			return Succeed, nil
		}
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		a.logger.Debug("permission gate: claim set has no parseable user id", "subject", claims.Subject())
		return Fail, nil
	}

	roles, err := a.roles.ResolveTenantRoles(ctx, userID, tenantID)
	if err != nil {
		return Fail, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve tenant roles").
			WithMetadata(map[string]any{
				"user_id":   userID.String(),
				"tenant_id": tenantID.String(),
			})
	}

	for _, role := range roles {
		if role == nil {
			continue
		}
		// the store already scopes by tenant; keep the invariant local too
		if role.TenantID != tenantID {
			continue
		}
		if role.HasPermission(required) {
			return Succeed, nil
		}
	}

	return Fail, nil
}
