package auth

import (
	"context"
	"net/http"

	"github.com/sakif/todo-manager/internal/model"
)

// contextKey is unexported so only this package can set or read the
// session user in a request context.
type contextKey string

const userKey contextKey = "sessionUser"

// SessionGuard resolves the current session or reports that nobody is
// logged in. service.AuthService implements it.
type SessionGuard interface {
	RequireSession(ctx context.Context) (*model.User, error)
}

// RequireSession rejects requests with 401 when there is no session and
// otherwise stores the session user in the request context.
//
// The daemon serves a single browser context, so the session is the one in
// the store rather than something carried by the request. The client decides
// where to navigate on 401.
func RequireSession(guard SessionGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := guard.RequireSession(r.Context())
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"authentication required"}`))
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the session user stored by RequireSession.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
