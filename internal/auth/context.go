package auth

import (
	"context"

	"adminpanel.org/internal/model"
)

type userContextKey struct{}

// ContextWithUser attaches the signed-in user, so audit lines can name the
// actor.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	if user == nil {
		return ctx
	}
	u := *user
	return context.WithValue(ctx, userContextKey{}, &u)
}

// UserFromContext returns the user attached by ContextWithUser.
func UserFromContext(ctx context.Context) (model.User, bool) {
	if ctx == nil {
		return model.User{}, false
	}
	v, ok := ctx.Value(userContextKey{}).(*model.User)
	if !ok || v == nil {
		return model.User{}, false
	}
	return *v, true
}

// UserIDFromContext extracts the signed-in user's id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok || u.ID == "" {
		return "", false
	}
	return u.ID, true
}
