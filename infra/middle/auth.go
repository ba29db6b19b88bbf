package middle

import (
	"net/http"
	"strings"

	"github.com/majorphones/topup/identity"
	"github.com/majorphones/topup/infra/response"
)

// AuthMiddleware validates bearer token authentication and attaches the
// authenticated identity to the request context. The raw token is kept
// alongside the user so downstream backend calls can forward it verbatim.
func AuthMiddleware(jwtService *identity.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Error(w, http.StatusUnauthorized, "Authorization header required", nil)
				return
			}

			// Both "Bearer <token>" and a raw token are accepted; the
			// upstream order endpoints themselves take the raw form.
			raw := strings.TrimPrefix(authHeader, "Bearer ")
			if raw == "" {
				response.Error(w, http.StatusUnauthorized, "Bearer token required", nil)
				return
			}

			user, err := jwtService.Verify(raw)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Invalid bearer token", err)
				return
			}

			ctx := identity.WithIdentity(r.Context(), user, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
