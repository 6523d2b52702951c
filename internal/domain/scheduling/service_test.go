package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dentaldesk/clinic/internal/domain/identity"
	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/lock"
	"github.com/dentaldesk/clinic/internal/platform/metrics"
)

type fixture struct {
	svc      *Service
	patients *identity.PatientRepoMem
	doctors  *identity.DoctorRepoMem
	appts    *AppointmentRepoMem
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	f := &fixture{
		patients: identity.NewPatientRepoMem(),
		doctors:  identity.NewDoctorRepoMem(),
		appts:    NewAppointmentRepoMem(),
	}
	f.svc = NewService(f.appts, f.patients, f.doctors, lock.NewLocal(), metrics.Nop{}, policy)
	f.svc.now = func() time.Time { return at(8, 0) }
	f.svc.randN = func(int) int { return 7 }

	ctx := context.Background()
	for _, name := range []string{"Ali Khan", "Sara Ahmed"} {
		if err := f.patients.Create(ctx, &identity.Patient{FullName: name, MRN: "MRN-" + name}); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"Dr. Ayesha", "Dr. Omar"} {
		if err := f.doctors.Create(ctx, &identity.Doctor{FullName: name, Specialty: "General", Active: identity.ActiveYes}); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func (f *fixture) book(patientID, doctorID int64, start time.Time) (*Appointment, error) {
	a := &Appointment{PatientID: patientID, DoctorID: doctorID, ScheduledAt: start, DurationMin: 15}
	return a, f.svc.CreateAppointment(context.Background(), a)
}

func TestCreateAppointment_Success(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	a, err := f.book(1, 1, at(10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == 0 || a.Status != StatusScheduled || a.ApptNo != "AP2025-0007" {
		t.Errorf("unexpected appointment %+v", a)
	}
}

func TestCreateAppointment_BufferRule(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	if _, err := f.book(1, 1, at(10, 0)); err != nil {
		t.Fatal(err)
	}

	for _, start := range []time.Time{at(10, 10), at(10, 20)} {
		_, err := f.book(2, 1, start)
		if !errors.Is(err, ErrSchedulingConflict) {
			t.Errorf("%s: expected conflict, got %v", start.Format("15:04"), err)
		}
	}
	if _, err := f.book(2, 1, at(10, 30)); err != nil {
		t.Errorf("10:30 should be the first safe start: %v", err)
	}

	all, _ := f.appts.List(context.Background(), Filter{})
	if len(all) != 2 {
		t.Errorf("rejected bookings must not be stored, have %d", len(all))
	}
}

func TestCreateAppointment_DoctorScope(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	if _, err := f.book(1, 1, at(10, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.book(2, 2, at(10, 0)); err != nil {
		t.Errorf("different doctor should not conflict: %v", err)
	}
}

func TestCreateAppointment_ClinicScope(t *testing.T) {
	f := newFixture(t, Policy{Scope: ScopeClinic, Buffer: 15 * time.Minute})
	if _, err := f.book(1, 1, at(10, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.book(2, 2, at(10, 10)); !errors.Is(err, ErrSchedulingConflict) {
		t.Errorf("clinic scope should conflict across doctors, got %v", err)
	}
}

func TestCreateAppointment_CancelledFreesSlot(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	a, err := f.book(1, 1, at(10, 0))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.UpdateAppointmentStatus(context.Background(), a.ID, StatusCancelled); err != nil {
		t.Fatal(err)
	}
	if _, err := f.book(2, 1, at(10, 0)); err != nil {
		t.Errorf("cancelled slot should be bookable: %v", err)
	}
}

func TestCreateAppointment_LongAppointmentBlocks(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	long := &Appointment{PatientID: 1, DoctorID: 1, ScheduledAt: at(9, 0), DurationMin: 120}
	if err := f.svc.CreateAppointment(context.Background(), long); err != nil {
		t.Fatal(err)
	}
	if _, err := f.book(2, 1, at(11, 10)); !errors.Is(err, ErrSchedulingConflict) {
		t.Errorf("expected conflict with the 2h booking, got %v", err)
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	inactive := &identity.Doctor{FullName: "Dr. Retired", Active: identity.ActiveNo}
	_ = f.doctors.Create(ctx, inactive)

	cases := map[string]*Appointment{
		"no patient":      {DoctorID: 1, ScheduledAt: at(10, 0), DurationMin: 15},
		"no doctor":       {PatientID: 1, ScheduledAt: at(10, 0), DurationMin: 15},
		"no time":         {PatientID: 1, DoctorID: 1, DurationMin: 15},
		"zero duration":   {PatientID: 1, DoctorID: 1, ScheduledAt: at(10, 0)},
		"unknown patient": {PatientID: 99, DoctorID: 1, ScheduledAt: at(10, 0), DurationMin: 15},
		"unknown doctor":  {PatientID: 1, DoctorID: 99, ScheduledAt: at(10, 0), DurationMin: 15},
		"inactive doctor": {PatientID: 1, DoctorID: inactive.ID, ScheduledAt: at(10, 0), DurationMin: 15},
		"too long":        {PatientID: 1, DoctorID: 1, ScheduledAt: at(10, 0), DurationMin: MaxDurationMin + 1},
	}
	for name, a := range cases {
		err := f.svc.CreateAppointment(ctx, a)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestUpdateAppointmentStatus(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	a, _ := f.book(1, 1, at(10, 0))
	ctx := context.Background()

	if err := f.svc.UpdateAppointmentStatus(ctx, a.ID, "checked_in"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := f.svc.GetAppointment(ctx, a.ID)
	if got.Status != StatusCheckedIn {
		t.Errorf("expected CHECKED_IN, got %s", got.Status)
	}
	// Transitions are permissive.
	if err := f.svc.UpdateAppointmentStatus(ctx, a.ID, StatusScheduled); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := f.svc.UpdateAppointmentStatus(ctx, a.ID, "DONE"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := f.svc.UpdateAppointmentStatus(ctx, 42, StatusCompleted); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestListAppointments_SortedAndDenormalized(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	if _, err := f.book(2, 2, at(14, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.book(1, 1, at(9, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.book(1, 1, at(16, 0)); err != nil {
		t.Fatal(err)
	}

	views, err := f.svc.ListAppointments(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3, got %d", len(views))
	}
	if !views[0].ScheduledAt.Equal(at(9, 0)) || views[0].PatientName != "Ali Khan" || views[0].DoctorName != "Dr. Ayesha" {
		t.Errorf("unexpected first view %+v", views[0])
	}
	if views[1].Specialty != "General" || views[1].MRN != "MRN-Sara Ahmed" {
		t.Errorf("unexpected second view %+v", views[1])
	}

	mine, _ := f.svc.ListAppointments(context.Background(), Filter{PatientID: 1})
	if len(mine) != 2 {
		t.Errorf("expected 2 for patient 1, got %d", len(mine))
	}
}
