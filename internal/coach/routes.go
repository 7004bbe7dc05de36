package coach

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the admin routes behind a bearer token.
func RegisterRoutes(r chi.Router, h *Handler, token string) {
	r.Route("/users/{userKey}", func(r chi.Router) {
		r.Use(RequireBearer(token))
		r.Get("/profile", h.GetProfile)
		r.Get("/state", h.GetState)
		r.Get("/messages", h.GetMessages)
	})
}

// RequireBearer rejects requests whose Authorization header does not carry
// token. An empty token rejects everything.
func RequireBearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
