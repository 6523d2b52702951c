package visit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dentaldesk/clinic/internal/domain/catalog"
	"github.com/dentaldesk/clinic/internal/domain/scheduling"
	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/db"
	"github.com/dentaldesk/clinic/internal/platform/lock"
)

type fixture struct {
	svc    *Service
	visits *RepoMem
	appts  *scheduling.AppointmentRepoMem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{visits: NewRepoMem(), appts: scheduling.NewAppointmentRepoMem()}
	f.svc = NewService(f.visits, f.appts, catalog.NewProcedureRepoMem(), db.NoTx{}, lock.NewLocal())
	f.svc.now = func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) appointment(t *testing.T, status string) int64 {
	t.Helper()
	a := &scheduling.Appointment{PatientID: 1, DoctorID: 1, ScheduledAt: time.Now(), DurationMin: 15, Status: status}
	if err := f.appts.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a.ID
}

func (f *fixture) openVisit(t *testing.T) *Visit {
	t.Helper()
	v, err := f.svc.StartVisit(context.Background(), f.appointment(t, scheduling.StatusCheckedIn), "toothache")
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func price(p float64) *float64 { return &p }

func TestStartVisit_CreatesOpenVisit(t *testing.T) {
	f := newFixture(t)
	apptID := f.appointment(t, scheduling.StatusCheckedIn)

	v, err := f.svc.StartVisit(context.Background(), apptID, "  toothache ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != StatusOpen || v.TotalAmount != 0 || v.Complaint != "toothache" {
		t.Errorf("unexpected visit %+v", v)
	}
	appt, _ := f.appts.GetByID(context.Background(), apptID)
	if appt.Status != scheduling.StatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", appt.Status)
	}
}

func TestStartVisit_Idempotent(t *testing.T) {
	f := newFixture(t)
	apptID := f.appointment(t, scheduling.StatusCheckedIn)
	first, err := f.svc.StartVisit(context.Background(), apptID, "a")
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.StartVisit(context.Background(), apptID, "b")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || second.Complaint != "a" {
		t.Errorf("expected existing visit, got %+v", second)
	}
}

func TestStartVisit_MissingAppointment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartVisit(context.Background(), 404, "")
	if !errors.Is(err, scheduling.ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestStartCheckedInVisit(t *testing.T) {
	f := newFixture(t)
	apptID := f.appointment(t, scheduling.StatusScheduled)
	if _, err := f.svc.StartCheckedInVisit(context.Background(), apptID, ""); !errors.Is(err, ErrNotCheckedIn) {
		t.Errorf("expected ErrNotCheckedIn, got %v", err)
	}
	// The permissive variant does not block.
	if _, err := f.svc.StartVisit(context.Background(), apptID, ""); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestItems_TotalTracksSum(t *testing.T) {
	f := newFixture(t)
	v := f.openVisit(t)
	ctx := context.Background()

	exam, err := f.svc.AddItem(ctx, v.ID, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if exam.Qty != 1 || exam.Amount != 500 || exam.ProcName != "Oral Exam" {
		t.Errorf("unexpected item %+v", exam)
	}
	scaling, err := f.svc.AddItem(ctx, v.ID, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddItem(ctx, v.ID, 3, price(2500)); err != nil {
		t.Fatal(err)
	}

	got, _ := f.svc.GetVisit(ctx, v.ID)
	if got.TotalAmount != 4500 || got.TotalAmount != RecomputeTotal(got.Items) {
		t.Errorf("expected total 4500, got %v", got.TotalAmount)
	}

	if err := f.svc.DeleteItem(ctx, v.ID, scaling.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = f.svc.GetVisit(ctx, v.ID)
	if got.TotalAmount != 3000 || len(got.Items) != 2 {
		t.Errorf("expected 3000 over 2 items, got %v over %d", got.TotalAmount, len(got.Items))
	}
}

func TestItems_AddThenDeleteRestoresTotal(t *testing.T) {
	f := newFixture(t)
	v := f.openVisit(t)
	ctx := context.Background()
	if _, err := f.svc.AddItem(ctx, v.ID, 1, nil); err != nil {
		t.Fatal(err)
	}
	before, _ := f.svc.GetVisit(ctx, v.ID)

	it, err := f.svc.AddItem(ctx, v.ID, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteItem(ctx, v.ID, it.ID); err != nil {
		t.Fatal(err)
	}
	after, _ := f.svc.GetVisit(ctx, v.ID)
	if after.TotalAmount != before.TotalAmount {
		t.Errorf("expected %v, got %v", before.TotalAmount, after.TotalAmount)
	}
}

func TestUpdateItem_PreservesIdentity(t *testing.T) {
	f := newFixture(t)
	v := f.openVisit(t)
	ctx := context.Background()
	it, _ := f.svc.AddItem(ctx, v.ID, 1, nil)

	updated, err := f.svc.UpdateItem(ctx, v.ID, it.ID, 4, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ID != it.ID || updated.ProcName != "Root Canal" || updated.Amount != 8000 {
		t.Errorf("unexpected item %+v", updated)
	}

	updated, err = f.svc.UpdateItem(ctx, v.ID, it.ID, 0, price(7000))
	if err != nil {
		t.Fatal(err)
	}
	if updated.ProcedureID != 4 || updated.Amount != 7000 {
		t.Errorf("expected root canal at 7000, got %+v", updated)
	}
	got, _ := f.svc.GetVisit(ctx, v.ID)
	if got.TotalAmount != 7000 {
		t.Errorf("expected total 7000, got %v", got.TotalAmount)
	}
}

func TestItems_Errors(t *testing.T) {
	f := newFixture(t)
	v := f.openVisit(t)
	other := f.openVisit(t)
	ctx := context.Background()

	if _, err := f.svc.AddItem(ctx, v.ID, 99, nil); !errors.Is(err, catalog.ErrProcedureNotFound) {
		t.Errorf("expected ErrProcedureNotFound, got %v", err)
	}
	if _, err := f.svc.AddItem(ctx, 404, 1, nil); !errors.Is(err, ErrVisitNotFound) {
		t.Errorf("expected ErrVisitNotFound, got %v", err)
	}
	if _, err := f.svc.AddItem(ctx, v.ID, 1, price(-1)); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}

	it, _ := f.svc.AddItem(ctx, other.ID, 1, nil)
	if err := f.svc.DeleteItem(ctx, v.ID, it.ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("item of another visit must not be reachable, got %v", err)
	}
}

func TestItems_BlockedOnceBilled(t *testing.T) {
	f := newFixture(t)
	v := f.openVisit(t)
	ctx := context.Background()
	it, _ := f.svc.AddItem(ctx, v.ID, 1, nil)
	if err := f.visits.SetStatus(ctx, v.ID, StatusBilled); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.AddItem(ctx, v.ID, 2, nil); !errors.Is(err, ErrVisitBilled) {
		t.Errorf("expected ErrVisitBilled, got %v", err)
	}
	if _, err := f.svc.UpdateItem(ctx, v.ID, it.ID, 2, nil); !errors.Is(err, ErrVisitBilled) {
		t.Errorf("expected ErrVisitBilled, got %v", err)
	}
	if err := f.svc.DeleteItem(ctx, v.ID, it.ID); !errors.Is(err, ErrVisitBilled) {
		t.Errorf("expected ErrVisitBilled, got %v", err)
	}
}

func TestUpdateVisitNotes_Partial(t *testing.T) {
	f := newFixture(t)
	v := f.openVisit(t)
	diag := "caries"
	got, err := f.svc.UpdateVisitNotes(context.Background(), v.ID, VisitPatch{Diagnosis: &diag})
	if err != nil {
		t.Fatal(err)
	}
	if got.Diagnosis != "caries" || got.Complaint != "toothache" || got.Status != StatusOpen {
		t.Errorf("unexpected visit %+v", got)
	}
}

func TestPrescriptions(t *testing.T) {
	f := newFixture(t)
	v := f.openVisit(t)
	ctx := context.Background()

	if err := f.svc.AddPrescription(ctx, v.ID, &Prescription{}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	rx := &Prescription{Medication: "Amoxicillin 500mg", Instructions: "TDS x 5 days"}
	if err := f.svc.AddPrescription(ctx, v.ID, rx); err != nil {
		t.Fatal(err)
	}

	instr := "BD x 3 days"
	updated, err := f.svc.UpdatePrescription(ctx, rx.ID, PrescriptionPatch{Instructions: &instr})
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != rx.ID || updated.Medication != "Amoxicillin 500mg" || updated.Instructions != instr {
		t.Errorf("unexpected prescription %+v", updated)
	}

	got, _ := f.svc.GetVisitByAppointment(ctx, v.ApptID)
	if len(got.Prescriptions) != 1 {
		t.Fatalf("expected 1 prescription, got %d", len(got.Prescriptions))
	}

	if err := f.svc.DeletePrescription(ctx, rx.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeletePrescription(ctx, rx.ID); !errors.Is(err, ErrPrescriptionNotFound) {
		t.Errorf("expected ErrPrescriptionNotFound, got %v", err)
	}
}

func TestRecomputeTotal(t *testing.T) {
	items := []*Item{{Amount: 0.1}, {Amount: 0.2}}
	if got := RecomputeTotal(items); got != 0.3 {
		t.Errorf("expected 0.3, got %v", got)
	}
	if RecomputeTotal(nil) != 0 {
		t.Error("empty visit totals 0")
	}
}

func TestGetVisit_TotalMatchesItemsUnderConcurrentEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.openVisit(t)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			it, err := f.svc.AddItem(ctx, v.ID, 1, price(500))
			if err != nil {
				t.Error(err)
				return
			}
			if err := f.svc.DeleteItem(ctx, v.ID, it.ID); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	mismatches := 0
	for i := 0; i < 2000; i++ {
		got, err := f.svc.GetVisit(ctx, v.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.TotalAmount != RecomputeTotal(got.Items) {
			mismatches++
		}
	}
	close(stop)
	wg.Wait()

	if mismatches != 0 {
		t.Errorf("observed %d reads where total_amount != sum(items)", mismatches)
	}
}
