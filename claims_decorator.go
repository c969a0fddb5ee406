package authz

import "context"

// ClaimsDecorator can mutate allowed claim extensions before a token is
// signed. Implementations may only touch extension fields (Metadata) and must
// leave registered, tenant, and permission claims untouched so authorization
// semantics stay stable. The issuer enforces this with a snapshot guard.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, identity Identity, claims *TenantClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, identity Identity, claims *TenantClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, identity Identity, claims *TenantClaims) error {
	if f == nil {
		return nil
	}
	return f(ctx, identity, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, Identity, *TenantClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}
