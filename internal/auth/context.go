package auth

import (
	"context"

	"github.com/skillswap/skillswap/internal/model"
)

type contextKey string

const identityContextKey contextKey = "identity"

// ContextWithIdentity stores the signed-in identity in ctx.
func ContextWithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the signed-in identity, or nil.
func IdentityFromContext(ctx context.Context) *model.Identity {
	id, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok {
		return nil
	}
	return id
}

// EmailFromContext returns the signed-in email, or "" for anonymous requests.
func EmailFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Email
	}
	return ""
}
