package visit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic/internal/domain/catalog"
	"github.com/dentaldesk/clinic/internal/domain/scheduling"
	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/db"
	"github.com/dentaldesk/clinic/internal/platform/lock"
)

// LockKey names the critical section guarding a visit and everything billed
// from it.
func LockKey(visitID int64) string {
	return "visit:" + strconv.FormatInt(visitID, 10)
}

func appointmentKey(apptID int64) string {
	return "appointment:" + strconv.FormatInt(apptID, 10)
}

type Service struct {
	visits Repository
	appts  scheduling.AppointmentRepository
	procs  catalog.ProcedureRepository
	tx     db.TxRunner
	locker lock.Locker
	now    func() time.Time
}

func NewService(visits Repository, appts scheduling.AppointmentRepository, procs catalog.ProcedureRepository,
	tx db.TxRunner, locker lock.Locker) *Service {
	return &Service{visits: visits, appts: appts, procs: procs, tx: tx, locker: locker, now: time.Now}
}

// StartVisit opens the clinical record for an appointment and moves the
// appointment to IN_PROGRESS. A second call returns the existing visit.
func (s *Service) StartVisit(ctx context.Context, apptID int64, complaint string) (*Visit, error) {
	return s.startVisit(ctx, apptID, complaint, false)
}

// StartCheckedInVisit is StartVisit for callers that require the patient to
// have been checked in first. An existing visit is still returned as is.
func (s *Service) StartCheckedInVisit(ctx context.Context, apptID int64, complaint string) (*Visit, error) {
	return s.startVisit(ctx, apptID, complaint, true)
}

func (s *Service) startVisit(ctx context.Context, apptID int64, complaint string, requireCheckIn bool) (*Visit, error) {
	const op = "visit.StartVisit"

	var out *Visit
	err := lock.Do(ctx, s.locker, appointmentKey(apptID), func(ctx context.Context) error {
		appt, err := s.appts.GetByID(ctx, apptID)
		if err != nil {
			return err
		}
		existing, err := s.visits.GetByAppointment(ctx, apptID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, ErrVisitNotFound) {
			return err
		}
		if requireCheckIn && appt.Status != scheduling.StatusCheckedIn {
			return ErrNotCheckedIn
		}

		v := &Visit{
			ApptID:    apptID,
			VisitDate: s.now().UTC(),
			Complaint: strings.TrimSpace(complaint),
			Status:    StatusOpen,
		}
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.visits.Create(ctx, v); err != nil {
				return err
			}
			return s.appts.UpdateStatus(ctx, apptID, scheduling.StatusInProgress)
		})
		if err != nil {
			return err
		}
		zerolog.Ctx(ctx).Info().Int64("visit_id", v.ID).Int64("appt_id", apptID).Msg("visit started")
		out = v
		return nil
	})
	if err != nil {
		return nil, apperr.Reject(ctx, op, apptID, err)
	}
	return s.load(ctx, out.ID)
}

// GetVisit returns the visit with its items and prescriptions.
func (s *Service) GetVisit(ctx context.Context, id int64) (*Visit, error) {
	return s.load(ctx, id)
}

func (s *Service) GetVisitByAppointment(ctx context.Context, apptID int64) (*Visit, error) {
	v, err := s.visits.GetByAppointment(ctx, apptID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, v.ID)
}

// load reads the visit header and its children under the visit lock, in one
// transaction, so the returned total always equals the sum of the returned
// items.
func (s *Service) load(ctx context.Context, id int64) (*Visit, error) {
	var out *Visit
	err := lock.Do(ctx, s.locker, LockKey(id), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			v, err := s.visits.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if v.Items, err = s.visits.ListItems(ctx, id); err != nil {
				return apperr.Wrap("visit.load", err)
			}
			if v.Prescriptions, err = s.visits.ListPrescriptions(ctx, id); err != nil {
				return apperr.Wrap("visit.load", err)
			}
			out = v
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateVisitNotes merges complaint, diagnosis and treatment. Status and
// totals are not touched.
func (s *Service) UpdateVisitNotes(ctx context.Context, id int64, patch VisitPatch) (*Visit, error) {
	const op = "visit.UpdateVisitNotes"
	err := lock.Do(ctx, s.locker, LockKey(id), func(ctx context.Context) error {
		v, err := s.visits.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.apply(v)
		return s.visits.UpdateNotes(ctx, v)
	})
	if err != nil {
		return nil, apperr.Reject(ctx, op, id, err)
	}
	return s.GetVisit(ctx, id)
}

// -- Items --

// mutateItems runs fn against an unbilled visit under its lock and within
// one transaction, then stores the recomputed total.
func (s *Service) mutateItems(ctx context.Context, visitID int64, fn func(ctx context.Context) error) error {
	return lock.Do(ctx, s.locker, LockKey(visitID), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			v, err := s.visits.GetByID(ctx, visitID)
			if err != nil {
				return err
			}
			if v.IsBilled() {
				return ErrVisitBilled
			}
			if err := fn(ctx); err != nil {
				return err
			}
			items, err := s.visits.ListItems(ctx, visitID)
			if err != nil {
				return err
			}
			return s.visits.SetTotal(ctx, visitID, RecomputeTotal(items))
		})
	})
}

func (s *Service) priceItem(ctx context.Context, it *Item, procedureID int64, priceOverride *float64) error {
	const op = "visit.priceItem"
	proc, err := s.procs.GetByID(ctx, procedureID)
	if err != nil {
		return err
	}
	price := proc.Price
	if priceOverride != nil {
		if *priceOverride < 0 {
			return apperr.Validation(op, "price must not be negative")
		}
		price = *priceOverride
	}
	it.ProcedureID = proc.ID
	it.ProcName = proc.Name
	it.Qty = 1
	it.Price = price
	it.Amount = price
	return nil
}

// AddItem records a procedure on the visit at its catalog price, or at
// priceOverride when given.
func (s *Service) AddItem(ctx context.Context, visitID, procedureID int64, priceOverride *float64) (*Item, error) {
	const op = "visit.AddItem"
	it := &Item{VisitID: visitID}
	err := s.mutateItems(ctx, visitID, func(ctx context.Context) error {
		if err := s.priceItem(ctx, it, procedureID, priceOverride); err != nil {
			return err
		}
		return s.visits.CreateItem(ctx, it)
	})
	if err != nil {
		return nil, apperr.Reject(ctx, op, visitID, err)
	}
	return it, nil
}

// UpdateItem edits an item in place, keeping its id. A zero procedureID
// keeps the current procedure.
func (s *Service) UpdateItem(ctx context.Context, visitID, itemID, procedureID int64, priceOverride *float64) (*Item, error) {
	const op = "visit.UpdateItem"
	var it *Item
	err := s.mutateItems(ctx, visitID, func(ctx context.Context) error {
		var err error
		it, err = s.ownedItem(ctx, visitID, itemID)
		if err != nil {
			return err
		}
		if procedureID == 0 {
			procedureID = it.ProcedureID
		}
		if err := s.priceItem(ctx, it, procedureID, priceOverride); err != nil {
			return err
		}
		return s.visits.UpdateItem(ctx, it)
	})
	if err != nil {
		return nil, apperr.Reject(ctx, op, visitID, err)
	}
	return it, nil
}

func (s *Service) DeleteItem(ctx context.Context, visitID, itemID int64) error {
	const op = "visit.DeleteItem"
	err := s.mutateItems(ctx, visitID, func(ctx context.Context) error {
		if _, err := s.ownedItem(ctx, visitID, itemID); err != nil {
			return err
		}
		return s.visits.DeleteItem(ctx, itemID)
	})
	if err != nil {
		return apperr.Reject(ctx, op, visitID, err)
	}
	return nil
}

func (s *Service) ownedItem(ctx context.Context, visitID, itemID int64) (*Item, error) {
	it, err := s.visits.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.VisitID != visitID {
		return nil, ErrItemNotFound
	}
	return it, nil
}

// -- Prescriptions --

func (s *Service) AddPrescription(ctx context.Context, visitID int64, rx *Prescription) error {
	const op = "visit.AddPrescription"
	rx.Medication = strings.TrimSpace(rx.Medication)
	if rx.Medication == "" {
		return apperr.Reject(ctx, op, visitID, apperr.Validation(op, "medication is required"))
	}
	rx.ID = 0
	rx.VisitID = visitID
	err := lock.Do(ctx, s.locker, LockKey(visitID), func(ctx context.Context) error {
		if _, err := s.visits.GetByID(ctx, visitID); err != nil {
			return err
		}
		return s.visits.CreatePrescription(ctx, rx)
	})
	if err != nil {
		return apperr.Reject(ctx, op, visitID, err)
	}
	return nil
}

// PrescriptionPatch is a partial prescription update.
type PrescriptionPatch struct {
	Medication   *string `json:"medication"`
	Instructions *string `json:"instructions"`
}

func (s *Service) UpdatePrescription(ctx context.Context, rxID int64, patch PrescriptionPatch) (*Prescription, error) {
	const op = "visit.UpdatePrescription"
	current, err := s.visits.GetPrescription(ctx, rxID)
	if err != nil {
		return nil, apperr.Reject(ctx, op, rxID, err)
	}

	var rx *Prescription
	err = lock.Do(ctx, s.locker, LockKey(current.VisitID), func(ctx context.Context) error {
		rx, err = s.visits.GetPrescription(ctx, rxID)
		if err != nil {
			return err
		}
		if patch.Medication != nil {
			rx.Medication = strings.TrimSpace(*patch.Medication)
		}
		if patch.Instructions != nil {
			rx.Instructions = *patch.Instructions
		}
		if rx.Medication == "" {
			return apperr.Validation(op, "medication must not be empty")
		}
		return s.visits.UpdatePrescription(ctx, rx)
	})
	if err != nil {
		return nil, apperr.Reject(ctx, op, rxID, err)
	}
	return rx, nil
}

func (s *Service) DeletePrescription(ctx context.Context, rxID int64) error {
	const op = "visit.DeletePrescription"
	rx, err := s.visits.GetPrescription(ctx, rxID)
	if err != nil {
		return apperr.Reject(ctx, op, rxID, err)
	}
	err = lock.Do(ctx, s.locker, LockKey(rx.VisitID), func(ctx context.Context) error {
		return s.visits.DeletePrescription(ctx, rxID)
	})
	if err != nil {
		return apperr.Reject(ctx, op, rxID, err)
	}
	return nil
}
