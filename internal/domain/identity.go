package domain

import "context"

// Identity is the authenticated caller as asserted by the upstream proxy.
type Identity struct {
	UserID int64
	Staff  bool
}

func (i Identity) Authenticated() bool {
	return i.UserID > 0
}

// CanAccess reports whether the caller may read a resource owned by ownerID.
func (i Identity) CanAccess(ownerID int64) bool {
	return i.Staff || (i.Authenticated() && i.UserID == ownerID)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Identity{}
}
