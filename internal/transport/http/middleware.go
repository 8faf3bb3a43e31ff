package httptransport

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// requireAdmin validates a Bearer token signed with the shared admin key and
// carrying an admin claim. With no key configured every admin route refuses,
// which fails closed rather than open.
func requireAdmin(signingKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if signingKey == "" {
				writeError(w, http.StatusForbidden, "admin API disabled")
				return
			}
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(signingKey), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if isAdmin, _ := claims["admin"].(bool); !isAdmin {
				writeError(w, http.StatusForbidden, "admin privilege required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
