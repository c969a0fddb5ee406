package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider resolves named logger channels so each component can log
// under its own prefix.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Clock supplies the current time. Every component that needs a timestamp
// takes one of these instead of calling time.Now directly.
type Clock func() time.Time

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
}

// ClaimSet is the decoded claim view the authorizers consume. It is produced
// by the TokenService on issuance and recovered from a bearer token at the
// boundary.
type ClaimSet interface {
	Subject() string
	UserID() string
	Tenant() string
	Permissions() []string
	HasPermission(permission string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// IdentityStore resolves identities for credential checks. Absence is
// reported with a not-found error, never conflated with infrastructure
// failures.
type IdentityStore interface {
	ResolveIdentity(ctx context.Context, identifier string) (*User, error)
}

// RoleStore supplies the tenant-scoped role projection the permission
// authorizer reads. The core never writes through this interface.
type RoleStore interface {
	ResolveTenantRoles(ctx context.Context, userID, tenantID uuid.UUID) ([]*Role, error)
}

// SecretProvider hands out the signing secret used by the TokenService.
// Rotation policy is the provider's concern.
type SecretProvider interface {
	SigningSecret() []byte
}

// SecretProviderFunc adapts a function to the SecretProvider interface.
type SecretProviderFunc func() []byte

func (f SecretProviderFunc) SigningSecret() []byte {
	if f == nil {
		return nil
	}
	return f()
}

// StaticSecret is a fixed signing secret.
type StaticSecret []byte

func (s StaticSecret) SigningSecret() []byte { return []byte(s) }

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHZ "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHZ "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHZ "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHZ "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
