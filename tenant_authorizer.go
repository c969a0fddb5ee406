package authz

import "github.com/google/uuid"

// TenantAuthorizer is the first gate of the authorization pipeline: it
// succeeds iff the caller's claim set carries a well-formed tenant
// identifier. Whether that tenant exists is the persistence collaborator's
// concern. A Fail here short-circuits the pipeline; no permission check runs
// without a valid tenant.
type TenantAuthorizer struct {
	logger Logger
}

// NewTenantAuthorizer returns a tenant gate.
func NewTenantAuthorizer() *TenantAuthorizer {
	return &TenantAuthorizer{logger: defLogger{}}
}

// WithLogger overrides the logger.
func (a *TenantAuthorizer) WithLogger(logger Logger) *TenantAuthorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Authorize inspects the tenant claim. On Succeed the parsed tenant
// identifier is returned so callers do not parse twice. The all-zeros UUID
// is the package's "no tenant" sentinel and is treated as an absent claim
// even though it parses as a well-formed UUID.
func (a *TenantAuthorizer) Authorize(claims ClaimSet) (Decision, uuid.UUID) {
	if claims == nil {
		return Fail, uuid.Nil
	}

	raw := claims.Tenant()
	if raw == "" {
		a.logger.Debug("tenant gate: claim set has no tenant claim", "subject", claims.Subject())
		return Fail, uuid.Nil
	}

	tenantID, err := uuid.Parse(raw)
	if err != nil || tenantID == uuid.Nil {
		a.logger.Debug("tenant gate: malformed tenant claim", "tenant", raw)
		return Fail, uuid.Nil
	}

	return Succeed, tenantID
}
