package authz

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the ClaimSet in the given context
func WithClaimsContext(r context.Context, claims ClaimSet) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the ClaimSet from the standard context
func GetClaims(ctx context.Context) (ClaimSet, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(ClaimSet)
	return raw, ok
}

// GetRouterClaims extracts the ClaimSet from the router context
func GetRouterClaims(ctx router.Context, key string) (ClaimSet, bool) {
	if key == "" {
		key = "user" // Default key used by the gate middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(ClaimSet)
	return claims, ok
}

// Can is a convenience function to check a permission claim directly from
// the standard context. It consults only the claims minted into the token;
// use PermissionAuthorizer for the store-backed decision.
func Can(ctx context.Context, permission string) bool {
	claims, ok := GetClaims(ctx)
	if !ok {
		return false
	}
	return claims.HasPermission(permission)
}

// CanFromRouter is the router-context variant of Can.
func CanFromRouter(ctx router.Context, permission string) bool {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return false
	}
	return claims.HasPermission(permission)
}
