package account

import "github.com/dentaldesk/clinic/internal/platform/apperr"

var (
	ErrAdminNotFound = apperr.New(apperr.KindNotFound, "admin not found")
	ErrAdminExists   = apperr.New(apperr.KindConflict, "admin already exists")

	// ErrInvalidCredentials is only produced at the HTTP boundary; the
	// service reports a failed login as an absent session.
	ErrInvalidCredentials = apperr.New(apperr.KindAuth, "invalid credentials")
	ErrRecoveryMismatch   = apperr.New(apperr.KindAuth, "recovery details do not match")
)
