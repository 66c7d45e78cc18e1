package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the access-token shape issued by the external auth
// provider. This service only verifies; sign-in/out live elsewhere.
type TokenClaims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type ctxClaimsKey struct{}

// Middleware resolves the current user from a Bearer token when one is
// present. Anonymous requests pass through; handlers that need a user
// gate on RequireUser.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := &TokenClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil || !token.Valid || claims.TokenType != "access" {
				// Invalid credentials degrade to anonymous rather than
				// blocking playback.
				next.ServeHTTP(w, r)
				return
			}

			r.Header.Set("X-User-Id", claims.UserID)
			ctx := context.WithValue(r.Context(), ctxClaimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// UserID returns the authenticated user id, or "".
func UserID(r *http.Request) string {
	if claims, ok := r.Context().Value(ctxClaimsKey{}).(*TokenClaims); ok {
		return claims.UserID
	}
	return r.Header.Get("X-User-Id")
}

// RequireUser is the one deliberate blocking gate in the system: the
// library operations (favorite, save, subscribe, copy) need a signed-in
// user. The response carries authRequired so the page can raise its
// sign-in modal instead of a transient notice.
func RequireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := UserID(r)
	if uid != "" {
		return uid, true
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":        "sign in to use your library",
		"authRequired": true,
	})
	return "", false
}
