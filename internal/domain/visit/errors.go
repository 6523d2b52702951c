package visit

import "github.com/dentaldesk/clinic/internal/platform/apperr"

var (
	ErrVisitNotFound        = apperr.New(apperr.KindNotFound, "visit not found")
	ErrItemNotFound         = apperr.New(apperr.KindNotFound, "visit item not found")
	ErrPrescriptionNotFound = apperr.New(apperr.KindNotFound, "prescription not found")
	ErrVisitBilled          = apperr.New(apperr.KindConflict, "visit is already billed")
	ErrVisitExists          = apperr.New(apperr.KindConflict, "appointment already has a visit")
	ErrNotCheckedIn         = apperr.New(apperr.KindConflict, "appointment is not checked in")
)
