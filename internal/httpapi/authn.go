package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"adminpanel.org/internal/auth"
	"adminpanel.org/internal/model"
	"adminpanel.org/internal/permission"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/auth/login",
	"/metrics",
	"/healthz",
}

// principal is the authenticated caller and the permissions of their role at
// request time.
type principal struct {
	user  model.User
	perms permission.Set
}

type principalKey struct{}

func principalFromContext(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := a.tokens.Parse(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		user, ok := a.users.get(claims.Subject)
		if !ok || user.Status == statusRemoved {
			writeError(w, r, http.StatusUnauthorized, "account is no longer active")
			return
		}
		p := principal{user: user, perms: permission.Set{}}
		if role, ok := a.roles.get(user.Role); ok {
			if set, err := permission.ParseSet(string(role.Permission)); err == nil {
				p.perms = set
			}
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		ctx = auth.ContextWithUser(ctx, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guard rejects callers whose role lacks action on module with a 403.
func (a *API) guard(module permission.Module, action permission.Action, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !p.perms.Get(string(module)).Allows(action) {
			writeError(w, r, http.StatusForbidden, "you do not have permission to "+string(action)+" "+string(module))
			return
		}
		h(w, r)
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
