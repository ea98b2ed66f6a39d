package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func signToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func protectedServer(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	})
	return e
}

func request(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	e := protectedServer(JWTMiddleware(JWTConfig{Secret: testSecret}))

	token := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"physician"},
	})

	rec := request(e, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user-42" {
		t.Errorf("subject = %q, want user-42", rec.Body.String())
	}
}

func TestJWTMiddleware_RejectsBadTokens(t *testing.T) {
	e := protectedServer(JWTMiddleware(JWTConfig{Secret: testSecret}))

	expired := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, []byte("another-secret-another-secret-00"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Basic abc123"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(e, tt.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestJWTMiddleware_EnforcesIssuer(t *testing.T) {
	e := protectedServer(JWTMiddleware(JWTConfig{Secret: testSecret, Issuer: "clarity"}))

	wrongIssuer := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	rec := request(e, "Bearer "+wrongIssuer)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong issuer: status = %d, want 401", rec.Code)
	}

	rightIssuer := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    "clarity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	rec = request(e, "Bearer "+rightIssuer)
	if rec.Code != http.StatusOK {
		t.Errorf("right issuer: status = %d, want 200", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	token := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"billing_clerk"},
	})

	allowed := protectedServer(JWTMiddleware(JWTConfig{Secret: testSecret}), RequireRole("billing_clerk", "admin"))
	if rec := request(allowed, "Bearer "+token); rec.Code != http.StatusOK {
		t.Errorf("matching role: status = %d, want 200", rec.Code)
	}

	denied := protectedServer(JWTMiddleware(JWTConfig{Secret: testSecret}), RequireRole("physician"))
	if rec := request(denied, "Bearer "+token); rec.Code != http.StatusForbidden {
		t.Errorf("non-matching role: status = %d, want 403", rec.Code)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := protectedServer(DevAuthMiddleware(), RequireRole("admin"))

	rec := request(e, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "dev-user" {
		t.Errorf("subject = %q, want dev-user", rec.Body.String())
	}
}
