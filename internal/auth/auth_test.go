package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, userID, tokenType string, secret []byte) string {
	t.Helper()
	claims := TokenClaims{
		UserID:    userID,
		Email:     userID + "@example.com",
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func echoUserHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r)))
	})
}

func TestMiddlewareResolvesUser(t *testing.T) {
	h := Middleware(testSecret)(echoUserHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", "access", testSecret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Body.String(); got != "u1" {
		t.Fatalf("user id = %q; want %q", got, "u1")
	}
}

func TestMiddlewareAnonymousPassthrough(t *testing.T) {
	h := Middleware(testSecret)(echoUserHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "" {
		t.Fatalf("user id = %q; want empty", got)
	}
}

func TestMiddlewareDegradesBadTokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signTokenHelper("u1", "access", []byte("other"))},
		{"refresh token", signTokenHelper("u1", "refresh", testSecret)},
		{"garbage", "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Middleware(testSecret)(echoUserHandler())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d; want 200 (anonymous degrade)", rec.Code)
			}
			if got := rec.Body.String(); got != "" {
				t.Fatalf("user id = %q; want empty", got)
			}
		})
	}
}

func signTokenHelper(userID, tokenType string, secret []byte) string {
	claims := TokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	return token
}

func TestRequireUserBlocksAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/library/favorites/toggle", nil)
	rec := httptest.NewRecorder()

	uid, ok := RequireUser(rec, req)
	if ok || uid != "" {
		t.Fatalf("RequireUser = %q, %v; want rejection", uid, ok)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["authRequired"] != true {
		t.Fatalf("body = %v; want authRequired=true", body)
	}
}

func TestRequireUserPassesAuthenticated(t *testing.T) {
	h := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := RequireUser(w, r)
		if !ok {
			return
		}
		w.Write([]byte(uid))
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u7", "access", testSecret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "u7" {
		t.Fatalf("status/body = %d/%q; want 200/u7", rec.Code, rec.Body.String())
	}
}
