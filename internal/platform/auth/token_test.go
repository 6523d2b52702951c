package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "clinic"}
	issuer := NewTokenIssuer(cfg, time.Hour)
	fixed := time.Now()
	issuer.now = func() time.Time { return fixed }

	token, exp, err := issuer.Issue(Identity{
		Subject:   PatientSubject(9),
		Name:      "Ali Raza",
		Roles:     []string{RolePatient},
		PatientID: 9,
		MRN:       "MRN0009",
	})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if !exp.Equal(fixed.Add(time.Hour)) {
		t.Errorf("expected expiry %v, got %v", fixed.Add(time.Hour), exp)
	}

	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if PatientIDFromContext(ctx) != 9 || MRNFromContext(ctx) != "MRN0009" {
			t.Errorf("claims not propagated: id=%d mrn=%s", PatientIDFromContext(ctx), MRNFromContext(ctx))
		}
		return c.NoContent(http.StatusOK)
	}
	if _, err := runMiddleware(t, JWTMiddleware(cfg), "Bearer "+token, handler); err != nil {
		t.Fatalf("issued token rejected: %v", err)
	}
}

func TestNewTokenIssuer_DefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer(JWTConfig{SigningKey: testSigningKey}, 0)
	if issuer.ttl != 12*time.Hour {
		t.Errorf("expected default ttl 12h, got %v", issuer.ttl)
	}
}
