package account

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic/internal/domain/identity"
	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/auth"
	"github.com/dentaldesk/clinic/internal/platform/lock"
	"github.com/dentaldesk/clinic/internal/platform/metrics"
)

const (
	minPasswordLen = 6

	loginSuccess = "success"
	loginFailure = "failure"
	roleUnknown  = "unknown"
)

func adminKey(username string) string { return "account:admin:" + username }

// Service authenticates administrators and patients and runs the password
// recovery flows. Patients are looked up through the identity service so MRN
// and phone handling stays in one place.
type Service struct {
	admins   AdminRepository
	patients *identity.Service
	issuer   *auth.TokenIssuer
	locker   lock.Locker
	metrics  metrics.Recorder
}

func NewService(admins AdminRepository, patients *identity.Service, issuer *auth.TokenIssuer,
	locker lock.Locker, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{admins: admins, patients: patients, issuer: issuer, locker: locker, metrics: rec}
}

// EnsureAdmin provisions the configured administrator. An existing account
// keeps its password so that a recovery reset survives restarts; only the
// recovery phone is brought in line with configuration.
func (s *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) error {
	const op = "account.EnsureAdmin"
	if seed.Username == "" {
		return apperr.Validation(op, "admin username is required")
	}

	return lock.Do(ctx, s.locker, adminKey(seed.Username), func(ctx context.Context) error {
		existing, err := s.admins.GetByUsername(ctx, seed.Username)
		if err == nil {
			if seed.RecoveryPhone != "" && seed.RecoveryPhone != existing.RecoveryPhone {
				return apperr.Wrap(op, s.admins.UpdateRecoveryPhone(ctx, existing.ID, seed.RecoveryPhone))
			}
			return nil
		}
		if !errors.Is(err, ErrAdminNotFound) {
			return apperr.Wrap(op, err)
		}

		if seed.Password == "" {
			return apperr.Validation(op, "admin password is required")
		}
		hash, err := auth.HashPassword(seed.Password)
		if err != nil {
			return apperr.Wrap(op, err)
		}
		fullName := seed.FullName
		if fullName == "" {
			fullName = "Administrator"
		}
		a := &Admin{Username: seed.Username, FullName: fullName, RecoveryPhone: seed.RecoveryPhone, PasswordHash: hash}
		if err := s.admins.Create(ctx, a); err != nil && !errors.Is(err, ErrAdminExists) {
			return apperr.Wrap(op, err)
		}
		zerolog.Ctx(ctx).Info().Str("username", a.Username).Msg("admin account provisioned")
		return nil
	})
}

// Login authenticates identifier/password. Administrators are checked first
// by exact username, then patients by MRN in any of the forms
// identity.MRNCandidates accepts. Bad credentials yield a nil session and a
// nil error.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	const op = "account.Login"
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		s.metrics.LoginAttempt(roleUnknown, loginFailure)
		return nil, nil
	}

	a, err := s.admins.GetByUsername(ctx, identifier)
	switch {
	case err == nil:
		if auth.CheckPassword(a.PasswordHash, password) {
			s.metrics.LoginAttempt(auth.RoleAdmin, loginSuccess)
			return s.adminSession(a)
		}
	case !errors.Is(err, ErrAdminNotFound):
		return nil, apperr.Reject(ctx, op, 0, err)
	}

	p, err := s.patients.ResolvePatient(ctx, identifier)
	switch {
	case err == nil:
		if auth.CheckPassword(p.PasswordHash, password) {
			s.metrics.LoginAttempt(auth.RolePatient, loginSuccess)
			return s.patientSession(p)
		}
		s.metrics.LoginAttempt(auth.RolePatient, loginFailure)
	case errors.Is(err, identity.ErrPatientNotFound):
		role := roleUnknown
		if a != nil {
			role = auth.RoleAdmin
		}
		s.metrics.LoginAttempt(role, loginFailure)
	default:
		return nil, apperr.Reject(ctx, op, 0, err)
	}

	zerolog.Ctx(ctx).Warn().Str("identifier", identifier).Msg("login failed")
	return nil, nil
}

func (s *Service) adminSession(a *Admin) (*Session, error) {
	u := User{UserID: a.ID, Username: a.Username, FullName: a.FullName, Role: auth.RoleAdmin}
	return s.issue(u, auth.Identity{
		Subject: "admin:" + strconv.FormatInt(a.ID, 10),
		Name:    a.FullName,
		Roles:   []string{auth.RoleAdmin},
	})
}

func (s *Service) patientSession(p *identity.Patient) (*Session, error) {
	u := User{UserID: p.ID, Username: p.MRN, FullName: p.FullName, Role: auth.RolePatient, MRN: p.MRN}
	return s.issue(u, auth.Identity{
		Subject:   auth.PatientSubject(p.ID),
		Name:      p.FullName,
		Roles:     []string{auth.RolePatient},
		PatientID: p.ID,
		MRN:       p.MRN,
	})
}

func (s *Service) issue(u User, id auth.Identity) (*Session, error) {
	token, exp, err := s.issuer.Issue(id)
	if err != nil {
		return nil, apperr.Wrap("account.issue", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// VerifyAdminRecovery reports whether phone is the recovery phone on file for
// username. Phones are compared after normalisation.
func (s *Service) VerifyAdminRecovery(ctx context.Context, username, phone string) (bool, error) {
	a, err := s.admins.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrAdminNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Reject(ctx, "account.VerifyAdminRecovery", 0, err)
	}
	return s.patients.SamePhone(a.RecoveryPhone, phone), nil
}

// ResetAdminPassword sets a new admin password after re-checking the
// recovery details, so the reset cannot be replayed without them.
func (s *Service) ResetAdminPassword(ctx context.Context, username, phone, newPassword string) error {
	const op = "account.ResetAdminPassword"
	username = strings.TrimSpace(username)
	if err := checkPassword(op, newPassword); err != nil {
		return apperr.Reject(ctx, op, 0, err)
	}

	var adminID int64
	err := lock.Do(ctx, s.locker, adminKey(username), func(ctx context.Context) error {
		a, err := s.admins.GetByUsername(ctx, username)
		if errors.Is(err, ErrAdminNotFound) {
			return ErrRecoveryMismatch
		}
		if err != nil {
			return err
		}
		if !s.patients.SamePhone(a.RecoveryPhone, phone) {
			return ErrRecoveryMismatch
		}
		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return err
		}
		adminID = a.ID
		return s.admins.UpdatePassword(ctx, a.ID, hash)
	})
	if err != nil {
		return apperr.Reject(ctx, op, adminID, err)
	}
	zerolog.Ctx(ctx).Info().Int64("admin_id", adminID).Msg("admin password reset")
	return nil
}

// LookupPatientRecovery lists the patients registered under phone. A shared
// family number returns every patient on it.
func (s *Service) LookupPatientRecovery(ctx context.Context, phone string) ([]RecoveryMatch, error) {
	const op = "account.LookupPatientRecovery"
	if strings.TrimSpace(phone) == "" {
		return nil, apperr.Reject(ctx, op, 0, apperr.Validation(op, "phone is required"))
	}
	patients, err := s.patients.FindByPhone(ctx, phone)
	if err != nil {
		return nil, apperr.Reject(ctx, op, 0, err)
	}
	out := make([]RecoveryMatch, 0, len(patients))
	for _, p := range patients {
		out = append(out, RecoveryMatch{PatientID: p.ID, MRN: p.MRN, FullName: p.FullName})
	}
	return out, nil
}

// ResetPatientPassword sets a new password for the patient identified by
// mrn, provided phone matches the number on that record.
func (s *Service) ResetPatientPassword(ctx context.Context, mrn, phone, newPassword string) error {
	const op = "account.ResetPatientPassword"
	if err := checkPassword(op, newPassword); err != nil {
		return apperr.Reject(ctx, op, 0, err)
	}
	p, err := s.patients.ResolvePatient(ctx, mrn)
	if errors.Is(err, identity.ErrPatientNotFound) {
		return apperr.Reject(ctx, op, 0, ErrRecoveryMismatch)
	}
	if err != nil {
		return apperr.Reject(ctx, op, 0, err)
	}
	if !s.patients.SamePhone(p.MobileNo, phone) {
		return apperr.Reject(ctx, op, p.ID, ErrRecoveryMismatch)
	}
	if err := s.patients.SetPatientPassword(ctx, p.ID, newPassword); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Int64("patient_id", p.ID).Msg("patient password reset")
	return nil
}

// Register is patient self-registration: the next MRN is always assigned and
// the new patient is logged in straight away.
func (s *Service) Register(ctx context.Context, p *identity.Patient, password string) (*Session, *identity.Patient, error) {
	const op = "account.Register"
	if err := checkPassword(op, password); err != nil {
		return nil, nil, apperr.Reject(ctx, op, 0, err)
	}
	p.ID = 0
	p.MRN = ""
	out, _, err := s.patients.RegisterPatient(ctx, p, password)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.patientSession(out)
	if err != nil {
		return nil, nil, apperr.Reject(ctx, op, out.ID, err)
	}
	return sess, out, nil
}

func checkPassword(op, password string) error {
	if len(password) < minPasswordLen {
		return apperr.Validation(op, "password must be at least "+strconv.Itoa(minPasswordLen)+" characters")
	}
	return nil
}
