package auth

import (
	"context"

	"github.com/flasherpro/console/internal/model"
)

type contextKey struct{}

// Identity describes the authenticated caller of a request.
type Identity struct {
	UserID    int64
	Email     string
	Role      string
	SessionID int64
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func Email(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return id.Email
}

func IsAdmin(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == model.RoleAdmin
}
