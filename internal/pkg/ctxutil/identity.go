package ctxutil

import "context"

type identityKey struct{}

// Identity is the caller resolved at the HTTP boundary. Handlers read it once
// and pass tenant/user ids explicitly from there on.
type Identity struct {
	TenantID string
	UserID   string
}

func (i Identity) Valid() bool {
	return i.TenantID != "" && i.UserID != ""
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.Valid()
}
