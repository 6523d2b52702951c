package scheduling

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic/internal/domain/identity"
	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/lock"
	"github.com/dentaldesk/clinic/internal/platform/metrics"
)

// Scope selects which appointments compete for the same time.
type Scope string

const (
	// ScopeDoctor checks conflicts only among one doctor's appointments.
	ScopeDoctor Scope = "doctor"
	// ScopeClinic treats the whole clinic as a single chair.
	ScopeClinic Scope = "clinic"
)

const (
	DefaultBuffer      = 15 * time.Minute
	DefaultDurationMin = 15
	// MaxDurationMin bounds a single booking so conflict lookups can use a
	// finite window.
	MaxDurationMin = 8 * 60
)

type Policy struct {
	Scope  Scope
	Buffer time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Scope: ScopeDoctor, Buffer: DefaultBuffer}
}

type Service struct {
	appts    AppointmentRepository
	patients identity.PatientRepository
	doctors  identity.DoctorRepository
	locker   lock.Locker
	metrics  metrics.Recorder
	policy   Policy
	now      func() time.Time
	randN    func(n int) int
}

func NewService(appts AppointmentRepository, patients identity.PatientRepository, doctors identity.DoctorRepository,
	locker lock.Locker, rec metrics.Recorder, policy Policy) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if policy.Scope == "" {
		policy.Scope = ScopeDoctor
	}
	return &Service{
		appts:    appts,
		patients: patients,
		doctors:  doctors,
		locker:   locker,
		metrics:  rec,
		policy:   policy,
		now:      time.Now,
		randN:    rand.IntN,
	}
}

// FormatApptNo renders the display label AP<year>-<4 digits>. It is not
// unique; the appointment id is the key.
func FormatApptNo(year, n int) string {
	return fmt.Sprintf("AP%d-%04d", year, n%10000)
}

func (s *Service) scheduleKey(doctorID int64) string {
	if s.policy.Scope == ScopeClinic {
		return "schedule:clinic"
	}
	return "schedule:doctor:" + strconv.FormatInt(doctorID, 10)
}

// CreateAppointment books a, rejecting it with ErrSchedulingConflict when it
// falls within the buffer of another live appointment in the same scope.
func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	const op = "scheduling.CreateAppointment"

	if a.PatientID == 0 {
		return apperr.Reject(ctx, op, 0, apperr.Validation(op, "patient_id is required"))
	}
	if a.DoctorID == 0 {
		return apperr.Reject(ctx, op, 0, apperr.Validation(op, "doctor_id is required"))
	}
	if a.ScheduledAt.IsZero() {
		return apperr.Reject(ctx, op, 0, apperr.Validation(op, "scheduled_at is required"))
	}
	if a.DurationMin <= 0 || a.DurationMin > MaxDurationMin {
		return apperr.Reject(ctx, op, 0,
			apperr.Validation(op, fmt.Sprintf("duration_min must be between 1 and %d", MaxDurationMin)))
	}

	if _, err := s.patients.GetByID(ctx, a.PatientID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			err = apperr.Validation(op, "patient does not exist")
		}
		return apperr.Reject(ctx, op, a.PatientID, err)
	}
	doc, err := s.doctors.GetByID(ctx, a.DoctorID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			err = apperr.Validation(op, "doctor does not exist")
		}
		return apperr.Reject(ctx, op, a.DoctorID, err)
	}
	if !doc.IsActive() {
		return apperr.Reject(ctx, op, a.DoctorID, apperr.Validation(op, "doctor is not accepting appointments"))
	}

	a.ID = 0
	a.Status = StatusScheduled
	a.Remarks = strings.TrimSpace(a.Remarks)

	err = lock.Do(ctx, s.locker, s.scheduleKey(a.DoctorID), func(ctx context.Context) error {
		window := Filter{
			From: a.ScheduledAt.Add(-s.policy.Buffer - MaxDurationMin*time.Minute),
			To:   a.End().Add(s.policy.Buffer),
		}
		if s.policy.Scope == ScopeDoctor {
			window.DoctorID = a.DoctorID
		}
		existing, err := s.appts.List(ctx, window)
		if err != nil {
			return err
		}
		if clash := FindConflict(a, existing, s.policy.Buffer); clash != nil {
			s.metrics.SchedulingConflict()
			zerolog.Ctx(ctx).Debug().
				Int64("conflicts_with", clash.ID).
				Time("requested_at", a.ScheduledAt).
				Msg("scheduling conflict")
			return ErrSchedulingConflict
		}
		a.ApptNo = FormatApptNo(s.now().Year(), s.randN(10000))
		return s.appts.Create(ctx, a)
	})
	if err != nil {
		return apperr.Reject(ctx, op, a.PatientID, err)
	}

	s.metrics.AppointmentBooked()
	zerolog.Ctx(ctx).Info().
		Int64("appt_id", a.ID).
		Int64("doctor_id", a.DoctorID).
		Time("scheduled_at", a.ScheduledAt).
		Msg("appointment booked")
	return nil
}

// UpdateAppointmentStatus sets any of the six statuses; transitions are not
// restricted.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	const op = "scheduling.UpdateAppointmentStatus"
	status = strings.ToUpper(strings.TrimSpace(status))
	if !ValidStatus(status) {
		return apperr.Reject(ctx, op, id, apperr.Validation(op, fmt.Sprintf("invalid status: %q", status)))
	}
	err := lock.Do(ctx, s.locker, "appointment:"+strconv.FormatInt(id, 10), func(ctx context.Context) error {
		return s.appts.UpdateStatus(ctx, id, status)
	})
	if err != nil {
		return apperr.Reject(ctx, op, id, err)
	}
	s.metrics.AppointmentStatusChanged(status)
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

// GetAppointmentView returns one appointment with patient and doctor fields.
func (s *Service) GetAppointmentView(ctx context.Context, id int64) (*AppointmentView, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.denormalize(ctx, []*Appointment{a})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListAppointments returns matching appointments ordered by time, joined
// with patient and doctor names.
func (s *Service) ListAppointments(ctx context.Context, f Filter) ([]*AppointmentView, error) {
	appts, err := s.appts.List(ctx, f)
	if err != nil {
		return nil, apperr.Wrap("scheduling.ListAppointments", err)
	}
	return s.denormalize(ctx, appts)
}

func (s *Service) denormalize(ctx context.Context, appts []*Appointment) ([]*AppointmentView, error) {
	patients := make(map[int64]*identity.Patient)
	doctors := make(map[int64]*identity.Doctor)

	out := make([]*AppointmentView, 0, len(appts))
	for _, a := range appts {
		v := &AppointmentView{Appointment: *a}

		p, ok := patients[a.PatientID]
		if !ok {
			var err error
			p, err = s.patients.GetByID(ctx, a.PatientID)
			if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
				return nil, err
			}
			patients[a.PatientID] = p
		}
		if p != nil {
			v.PatientName, v.MRN, v.MobileNo = p.FullName, p.MRN, p.MobileNo
		}

		d, ok := doctors[a.DoctorID]
		if !ok {
			var err error
			d, err = s.doctors.GetByID(ctx, a.DoctorID)
			if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
				return nil, err
			}
			doctors[a.DoctorID] = d
		}
		if d != nil {
			v.DoctorName, v.Specialty = d.FullName, d.Specialty
		}

		out = append(out, v)
	}
	return out, nil
}
