package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/auth"
	"github.com/dentaldesk/clinic/internal/platform/lock"
	"github.com/dentaldesk/clinic/internal/platform/metrics"
)

// registerKey serializes patient registration: the idempotent MRN check and
// the sequence draw must not interleave.
const registerKey = "identity:register"

// maxMRNAttempts bounds the search for a free generated MRN.
const maxMRNAttempts = 32

var validGenders = map[string]bool{"": true, "Male": true, "Female": true, "Other": true}

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
	locker   lock.Locker
	metrics  metrics.Recorder
	region   string
}

func NewService(patients PatientRepository, doctors DoctorRepository, locker lock.Locker, rec metrics.Recorder, phoneRegion string) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{patients: patients, doctors: doctors, locker: locker, metrics: rec, region: phoneRegion}
}

// -- Patients --

// ResolvePatient maps a human-entered identifier to a patient, trying each of
// MRNCandidates in turn. ErrPatientNotFound tells the caller to register.
func (s *Service) ResolvePatient(ctx context.Context, identifier string) (*Patient, error) {
	for _, mrn := range MRNCandidates(identifier) {
		p, err := s.patients.GetByMRN(ctx, mrn)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrPatientNotFound) {
			return nil, apperr.Wrap("identity.ResolvePatient", err)
		}
	}
	return nil, ErrPatientNotFound
}

// RegisterPatient stores p. When p carries an MRN that already exists, the
// stored record is returned unchanged with created=false. Without an MRN the
// next free MRN####  from the store sequence is assigned. An empty password
// leaves the account unable to log in until reset.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient, password string) (*Patient, bool, error) {
	const op = "identity.RegisterPatient"

	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return nil, false, apperr.Reject(ctx, op, 0, apperr.Validation(op, "full_name is required"))
	}
	if !validGenders[p.Gender] {
		return nil, false, apperr.Reject(ctx, op, 0, apperr.Validation(op, "gender must be Male, Female or Other"))
	}
	if p.DOB != "" {
		if _, err := time.Parse("2006-01-02", p.DOB); err != nil {
			return nil, false, apperr.Reject(ctx, op, 0, apperr.Validation(op, "dob must be YYYY-MM-DD"))
		}
	}

	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, false, apperr.Reject(ctx, op, 0, err)
		}
		p.PasswordHash = hash
	}
	p.MobileNorm = NormalizePhone(p.MobileNo, s.region)

	var created bool
	err := lock.Do(ctx, s.locker, registerKey, func(ctx context.Context) error {
		if p.MRN != "" {
			p.MRN = CanonicalMRN(p.MRN)
			existing, err := s.patients.GetByMRN(ctx, p.MRN)
			if err == nil {
				*p = *existing
				return nil
			}
			if !errors.Is(err, ErrPatientNotFound) {
				return err
			}
			if err := s.patients.Create(ctx, p); err != nil {
				return err
			}
			created = true
			return nil
		}

		for attempt := 0; attempt < maxMRNAttempts; attempt++ {
			seq, err := s.patients.NextMRNSeq(ctx)
			if err != nil {
				return err
			}
			p.MRN = FormatMRN(seq)
			err = s.patients.Create(ctx, p)
			if errors.Is(err, ErrMRNTaken) {
				// A manually supplied MRN already occupies this number.
				continue
			}
			if err != nil {
				return err
			}
			created = true
			return nil
		}
		return ErrMRNTaken
	})
	if err != nil {
		return nil, false, apperr.Reject(ctx, op, 0, err)
	}

	if created {
		s.metrics.PatientRegistered()
		zerolog.Ctx(ctx).Info().Int64("patient_id", p.ID).Str("mrn", p.MRN).Msg("patient registered")
	}
	return p, created, nil
}

// FindByMRN looks up an MRN in the same canonical form RegisterPatient
// stores, so "mrn12" finds MRN0012.
func (s *Service) FindByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.patients.GetByMRN(ctx, CanonicalMRN(mrn))
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context) ([]*Patient, error) {
	return s.patients.List(ctx)
}

// SearchPatients lists patients whose name or MRN contains q, ignoring case.
// An empty q lists everyone.
func (s *Service) SearchPatients(ctx context.Context, q string) ([]*Patient, error) {
	all, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return all, nil
	}
	out := make([]*Patient, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.FullName), q) || strings.Contains(strings.ToLower(p.MRN), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindByPhone returns every patient registered under phone. Families often
// share one number, so more than one match is normal.
func (s *Service) FindByPhone(ctx context.Context, phone string) ([]*Patient, error) {
	norm := NormalizePhone(phone, s.region)
	if norm == "" {
		return nil, nil
	}
	return s.patients.ListByPhone(ctx, norm)
}

// SamePhone reports whether two phone numbers normalise to the same value.
func (s *Service) SamePhone(a, b string) bool {
	na := NormalizePhone(a, s.region)
	return na != "" && na == NormalizePhone(b, s.region)
}

func (s *Service) SetPatientPassword(ctx context.Context, id int64, password string) error {
	const op = "identity.SetPatientPassword"
	if password == "" {
		return apperr.Reject(ctx, op, id, apperr.Validation(op, "password is required"))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Reject(ctx, op, id, err)
	}
	if err := s.patients.UpdatePassword(ctx, id, hash); err != nil {
		return apperr.Reject(ctx, op, id, err)
	}
	return nil
}

// -- Doctors --

func (s *Service) AddDoctor(ctx context.Context, d *Doctor) error {
	const op = "identity.AddDoctor"
	d.FullName = strings.TrimSpace(d.FullName)
	if d.FullName == "" {
		return apperr.Reject(ctx, op, 0, apperr.Validation(op, "full_name is required"))
	}
	if d.Active == "" {
		d.Active = ActiveYes
	}
	if d.Active != ActiveYes && d.Active != ActiveNo {
		return apperr.Reject(ctx, op, 0, apperr.Validation(op, "active must be Y or N"))
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return apperr.Reject(ctx, op, 0, err)
	}
	return nil
}

// UpdateDoctor merges patch into the stored doctor. Doctors are deactivated
// with active=N rather than deleted.
func (s *Service) UpdateDoctor(ctx context.Context, id int64, patch DoctorPatch) (*Doctor, error) {
	const op = "identity.UpdateDoctor"
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Reject(ctx, op, id, err)
	}
	patch.apply(d)
	d.FullName = strings.TrimSpace(d.FullName)
	if d.FullName == "" {
		return nil, apperr.Reject(ctx, op, id, apperr.Validation(op, "full_name must not be empty"))
	}
	if d.Active != ActiveYes && d.Active != ActiveNo {
		return nil, apperr.Reject(ctx, op, id, apperr.Validation(op, "active must be Y or N"))
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, apperr.Reject(ctx, op, id, err)
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	return s.doctors.List(ctx)
}
