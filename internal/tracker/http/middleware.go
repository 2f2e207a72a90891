package http

import (
	"net/http"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/pkg/httpx"
)

// requireUser rejects requests without an authenticated session and places
// the actor identity in the context for handlers and rate limiting.
func (rt *Router) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, role, ok := rt.sessions.Actor(r)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized,
				"not_authenticated", "Sign in to access this resource.")
			return
		}
		next.ServeHTTP(w, r.WithContext(httpx.WithActor(r.Context(), userID, role)))
	})
}

// requireAdmin is requireUser plus an admin role gate.
func (rt *Router) requireAdmin(next http.Handler) http.Handler {
	return rt.requireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpx.ActorRole(r.Context()) != domain.RoleAdmin {
			httpx.WriteError(w, http.StatusForbidden,
				"forbidden", "Administrator access required.")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
