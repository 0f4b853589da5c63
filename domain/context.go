package domain

import "context"

// Identity is the authenticated caller attached to the request context by the
// authentication middleware. SessionID identifies the caller's own session in
// device listings and blocks self-revocation through the wrong endpoint.
type Identity struct {
	UserID    string
	JTI       string
	SessionID string
}

type identityContextKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext retrieves the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok
}
