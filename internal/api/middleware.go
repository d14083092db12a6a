// Package api implements the Ansuz REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/ansuz/internal/auth"
)

// IdentityMiddleware resolves the request's Bearer token to a user identity
// and stores it in the request context. Requests that cannot be resolved are
// rejected with 401 before reaching any handler.
func IdentityMiddleware(resolver auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			userID, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}
