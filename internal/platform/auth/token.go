package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what a session token asserts about its bearer.
type Identity struct {
	Subject   string
	Name      string
	Roles     []string
	PatientID int64
	MRN       string
}

// TokenIssuer signs HS256 session tokens that JWTMiddleware accepts.
type TokenIssuer struct {
	cfg JWTConfig
	ttl time.Duration
	now func() time.Time
}

func NewTokenIssuer(cfg JWTConfig, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{cfg: cfg, ttl: ttl, now: time.Now}
}

// Issue returns a signed token and its expiry.
func (i *TokenIssuer) Issue(id Identity) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name:      id.Name,
		Roles:     id.Roles,
		PatientID: id.PatientID,
		MRN:       id.MRN,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}
