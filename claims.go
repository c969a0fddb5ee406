package authz

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TenantClaims is the concrete claim set carried inside issued tokens: the
// registered JWT claims plus the tenant the token was minted for and the
// permissions effective within that tenant.
type TenantClaims struct {
	jwt.RegisteredClaims
	UID      string         `json:"uid,omitempty"`
	TenantID string         `json:"tid,omitempty"`
	Perms    []string       `json:"pms,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ ClaimSet = (*TenantClaims)(nil)

// NewTenantClaims assembles the claim set for an identity within a tenant.
// Time-based claims are filled in by the TokenService on issuance.
func NewTenantClaims(identity Identity, tenantID uuid.UUID, permissions []string) *TenantClaims {
	claims := &TenantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: identity.ID(),
		},
		UID:      identity.ID(),
		TenantID: tenantID.String(),
	}

	if len(permissions) > 0 {
		claims.Perms = append([]string(nil), permissions...)
	}

	return claims
}

// Subject returns the subject claim
func (c *TenantClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *TenantClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Tenant returns the raw tenant claim. Validity is the tenant authorizer's
// call, not ours.
func (c *TenantClaims) Tenant() string {
	return c.TenantID
}

// Permissions returns the permission claims minted into the token.
func (c *TenantClaims) Permissions() []string {
	return c.Perms
}

// HasPermission checks for an exact permission string match.
func (c *TenantClaims) HasPermission(permission string) bool {
	if permission == "" {
		return false
	}
	for _, p := range c.Perms {
		if p == permission {
			return true
		}
	}
	return false
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *TenantClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *TenantClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TenantClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
