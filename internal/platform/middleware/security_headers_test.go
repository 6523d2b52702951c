package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func serveWithHeaders(t *testing.T, cfg SecurityConfig, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), rec)
	if err := SecurityHeaders(cfg)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestSecurityHeaders_APIResponse(t *testing.T) {
	rec := serveWithHeaders(t, SecurityConfig{HSTSMaxAge: 365 * 24 * time.Hour}, "/api/v1/invoices/1")

	expected := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "0",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Referrer-Policy":           "no-referrer",
		"Cache-Control":             "no-store",
	}
	for header, want := range expected {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("header %s: got %q, want %q", header, got, want)
		}
	}
}

func TestSecurityHeaders_NoHSTSWhenDisabled(t *testing.T) {
	rec := serveWithHeaders(t, SecurityConfig{}, "/api/v1/patients")
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("expected no HSTS header, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected X-Frame-Options DENY, got %q", got)
	}
}

func TestSecurityHeaders_OpsEndpointsRevalidate(t *testing.T) {
	rec := serveWithHeaders(t, SecurityConfig{}, "/health")
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("expected no-cache on /health, got %q", got)
	}
}

func TestSecurityHeaders_DoesNotBlockRequest(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := func(c echo.Context) error {
		called = true
		return c.String(http.StatusCreated, "created")
	}

	if err := SecurityHeaders(SecurityConfig{})(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}
