package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal identifies the caller of a protected route.
type Principal struct {
	UserID    primitive.ObjectID
	Email     string
	Role      string
	SessionID string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
