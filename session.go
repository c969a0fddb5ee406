package authz

import (
	"time"

	"github.com/google/uuid"
)

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetTenantID() string
	GetPermissions() []string
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

var _ Session = &SessionObject{}

// SessionObject is the request-scoped view of a validated token.
type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	TenantID       string         `json:"tenant_id,omitempty"`
	Permissions    []string       `json:"permissions,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetTenantID() string {
	return s.TenantID
}

func (s *SessionObject) GetPermissions() []string {
	return s.Permissions
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

// HasPermission checks the session's minted permission claims.
func (s *SessionObject) HasPermission(permission string) bool {
	if permission == "" {
		return false
	}
	for _, p := range s.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func sessionFromClaims(claims ClaimSet) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToMapClaims
	}

	session := &SessionObject{
		UserID:      claims.UserID(),
		TenantID:    claims.Tenant(),
		Permissions: claims.Permissions(),
	}

	if issued := claims.IssuedAt(); !issued.IsZero() {
		t := issued
		session.IssuedAt = &t
	}

	if expires := claims.Expires(); !expires.IsZero() {
		t := expires
		session.ExpirationDate = &t
	}

	if tc, ok := claims.(*TenantClaims); ok {
		session.Issuer = tc.RegisteredClaims.Issuer
		session.Audience = tc.RegisteredClaims.Audience
		if len(tc.Metadata) > 0 {
			session.Data = tc.Metadata
		}
	}

	return session, nil
}
