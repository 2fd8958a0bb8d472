package shared

import "context"

type identityContextKey struct{}

// Principal is the minimal view of an authenticated actor carried in context.
type Principal interface {
	Wallet() string
	RoleName() string
}

// ContextWithPrincipal stores the resolved actor in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, identityContextKey{}, p)
}

// PrincipalFromContext extracts the resolved actor from context.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(identityContextKey{}).(Principal)
	return p
}
