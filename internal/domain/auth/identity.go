// Package auth defines caller identities and API key lookup.
package auth

import (
	"context"
	"slices"
)

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Roles  []string
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (i *Identity) HasAnyRole(roles []string) bool {
	for _, r := range i.Roles {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
