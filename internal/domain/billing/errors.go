package billing

import "github.com/dentaldesk/clinic/internal/platform/apperr"

var (
	ErrInvoiceNotFound = apperr.New(apperr.KindNotFound, "invoice not found")
	ErrAlreadyInvoiced = apperr.New(apperr.KindConflict, "visit has already been invoiced")
)
