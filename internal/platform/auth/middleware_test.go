package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "patient:7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles:     []string{RolePatient},
		PatientID: 7,
		MRN:       "MRN0007",
	}
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if handler == nil {
		handler = func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	}
	return rec, mw(handler)(c)
}

func assertStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "", nil)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), tt.header, nil)
			assertStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := createTestToken(t, validClaims(), testSigningKey)

	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if got := UserIDFromContext(ctx); got != "patient:7" {
			t.Errorf("expected subject patient:7, got %q", got)
		}
		if got := PatientIDFromContext(ctx); got != 7 {
			t.Errorf("expected patient id 7, got %d", got)
		}
		if got := MRNFromContext(ctx); got != "MRN0007" {
			t.Errorf("expected MRN0007, got %q", got)
		}
		roles := RolesFromContext(ctx)
		if len(roles) != 1 || roles[0] != RolePatient {
			t.Errorf("unexpected roles %v", roles)
		}
		return c.String(http.StatusOK, "ok")
	}

	rec, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token, handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := createTestToken(t, validClaims(), []byte("another-key"))
	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token, nil)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_Expired(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := createTestToken(t, claims, testSigningKey)

	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token, nil)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_MissingExpiry(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = nil
	token := createTestToken(t, claims, testSigningKey)

	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token, nil)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_IssuerMismatch(t *testing.T) {
	claims := validClaims()
	claims.Issuer = "someone-else"
	token := createTestToken(t, claims, testSigningKey)

	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "clinic"}
	_, err := runMiddleware(t, JWTMiddleware(cfg), "Bearer "+token, nil)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_DefaultsToAdmin(t *testing.T) {
	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if UserIDFromContext(ctx) != "dev-user" {
			t.Errorf("expected dev-user, got %q", UserIDFromContext(ctx))
		}
		if !HasRole(RolesFromContext(ctx), RoleAdmin) {
			t.Error("expected admin role in dev mode")
		}
		if PatientIDFromContext(ctx) != 0 {
			t.Error("dev user must not be bound to a patient")
		}
		return c.String(http.StatusOK, "ok")
	}

	_, err := runMiddleware(t, DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey}), "", handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDevAuthMiddleware_ValidatesPresentedToken(t *testing.T) {
	_, err := runMiddleware(t, DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer garbage", nil)
	assertStatus(t, err, http.StatusUnauthorized)

	token := createTestToken(t, validClaims(), testSigningKey)
	handler := func(c echo.Context) error {
		if PatientIDFromContext(c.Request().Context()) != 7 {
			t.Error("expected patient claims from the token")
		}
		return nil
	}
	if _, err := runMiddleware(t, DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token, handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPatientSubject(t *testing.T) {
	if got := PatientSubject(42); got != "patient:42" {
		t.Errorf("expected patient:42, got %s", got)
	}
}
