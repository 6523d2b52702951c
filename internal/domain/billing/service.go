package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic/internal/domain/identity"
	"github.com/dentaldesk/clinic/internal/domain/scheduling"
	"github.com/dentaldesk/clinic/internal/domain/visit"
	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/db"
	"github.com/dentaldesk/clinic/internal/platform/lock"
	"github.com/dentaldesk/clinic/internal/platform/metrics"
)

type Service struct {
	invoices InvoiceRepository
	visits   visit.Repository
	appts    scheduling.AppointmentRepository
	patients identity.PatientRepository
	doctors  identity.DoctorRepository
	tx       db.TxRunner
	locker   lock.Locker
	metrics  metrics.Recorder
	now      func() time.Time
}

func NewService(invoices InvoiceRepository, visits visit.Repository, appts scheduling.AppointmentRepository,
	patients identity.PatientRepository, doctors identity.DoctorRepository,
	tx db.TxRunner, locker lock.Locker, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		invoices: invoices,
		visits:   visits,
		appts:    appts,
		patients: patients,
		doctors:  doctors,
		tx:       tx,
		locker:   locker,
		metrics:  rec,
		now:      time.Now,
	}
}

// FinalizeVisit bills a visit: the visit becomes BILLED, its appointment
// COMPLETED, and an UNPAID invoice carrying the visit total is issued. Each
// visit is invoiced at most once.
func (s *Service) FinalizeVisit(ctx context.Context, visitID int64) (*Invoice, error) {
	const op = "billing.FinalizeVisit"

	var inv *Invoice
	err := lock.Do(ctx, s.locker, visit.LockKey(visitID), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			v, err := s.visits.GetByID(ctx, visitID)
			if err != nil {
				return err
			}
			if v.IsBilled() {
				return ErrAlreadyInvoiced
			}
			if _, err := s.invoices.GetByVisit(ctx, visitID); err == nil {
				return ErrAlreadyInvoiced
			} else if !errors.Is(err, ErrInvoiceNotFound) {
				return err
			}

			seq, err := s.invoices.NextInvoiceSeq(ctx)
			if err != nil {
				return err
			}
			now := s.now()
			inv = &Invoice{
				VisitID:     visitID,
				InvoiceNo:   FormatInvoiceNo(now.Year(), seq),
				InvoiceDate: now.UTC(),
				Subtotal:    v.TotalAmount,
				TotalAmount: v.TotalAmount,
				Status:      StatusUnpaid,
			}
			if err := s.invoices.Create(ctx, inv); err != nil {
				return err
			}
			if err := s.visits.SetStatus(ctx, visitID, visit.StatusBilled); err != nil {
				return err
			}
			return s.appts.UpdateStatus(ctx, v.ApptID, scheduling.StatusCompleted)
		})
	})
	if err != nil {
		return nil, apperr.Reject(ctx, op, visitID, err)
	}

	s.metrics.InvoiceIssued(inv.TotalAmount)
	zerolog.Ctx(ctx).Info().
		Int64("invoice_id", inv.ID).
		Str("invoice_no", inv.InvoiceNo).
		Float64("total", inv.TotalAmount).
		Msg("invoice issued")
	return inv, nil
}

// ListInvoices returns every invoice with the billed patient's name and MRN.
func (s *Service) ListInvoices(ctx context.Context) ([]*InvoiceSummary, error) {
	invs, err := s.invoices.List(ctx)
	if err != nil {
		return nil, apperr.Wrap("billing.ListInvoices", err)
	}
	out := make([]*InvoiceSummary, 0, len(invs))
	for _, inv := range invs {
		sum := &InvoiceSummary{Invoice: *inv}
		if p := s.patientFor(ctx, inv.VisitID); p != nil {
			sum.PatientName, sum.MRN = p.FullName, p.MRN
		}
		out = append(out, sum)
	}
	return out, nil
}

// SearchInvoices lists invoices whose number or patient MRN contains q,
// ignoring case. An empty q lists everything.
func (s *Service) SearchInvoices(ctx context.Context, q string) ([]*InvoiceSummary, error) {
	all, err := s.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return all, nil
	}
	out := make([]*InvoiceSummary, 0, len(all))
	for _, inv := range all {
		if strings.Contains(strings.ToLower(inv.InvoiceNo), q) || strings.Contains(strings.ToLower(inv.MRN), q) {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ListPatientInvoices returns the invoices billed to one patient.
func (s *Service) ListPatientInvoices(ctx context.Context, patientID int64) ([]*InvoiceSummary, error) {
	all, err := s.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*InvoiceSummary, 0)
	for _, sum := range all {
		if p := s.patientFor(ctx, sum.VisitID); p != nil && p.ID == patientID {
			out = append(out, sum)
		}
	}
	return out, nil
}

// patientFor follows visit -> appointment -> patient; broken links yield nil.
func (s *Service) patientFor(ctx context.Context, visitID int64) *identity.Patient {
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil
	}
	a, err := s.appts.GetByID(ctx, v.ApptID)
	if err != nil {
		return nil
	}
	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		return nil
	}
	return p
}

// GetInvoiceDetails assembles the printable invoice. A broken link anywhere
// in invoice -> visit -> appointment -> patient/doctor reports
// ErrInvoiceNotFound.
func (s *Service) GetInvoiceDetails(ctx context.Context, id int64) (*InvoiceDetails, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	missing := func(err error) error {
		if apperr.KindOf(err) == apperr.KindNotFound {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("invoice_id", id).Msg("invoice has a broken link")
			return ErrInvoiceNotFound
		}
		return apperr.Wrap("billing.GetInvoiceDetails", err)
	}

	v, err := s.visits.GetByID(ctx, inv.VisitID)
	if err != nil {
		return nil, missing(err)
	}
	appt, err := s.appts.GetByID(ctx, v.ApptID)
	if err != nil {
		return nil, missing(err)
	}
	p, err := s.patients.GetByID(ctx, appt.PatientID)
	if err != nil {
		return nil, missing(err)
	}
	d, err := s.doctors.GetByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, missing(err)
	}
	items, err := s.visits.ListItems(ctx, v.ID)
	if err != nil {
		return nil, missing(err)
	}
	rxs, err := s.visits.ListPrescriptions(ctx, v.ID)
	if err != nil {
		return nil, missing(err)
	}
	v.Items, v.Prescriptions = items, rxs

	return &InvoiceDetails{
		Invoice:       *inv,
		Visit:         v,
		Appointment:   appt,
		Patient:       p,
		Doctor:        d,
		Items:         items,
		Prescriptions: rxs,
	}, nil
}
