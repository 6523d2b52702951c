package identity

import "github.com/dentaldesk/clinic/internal/platform/apperr"

var (
	ErrPatientNotFound = apperr.New(apperr.KindNotFound, "patient not found")
	ErrDoctorNotFound  = apperr.New(apperr.KindNotFound, "doctor not found")
	ErrMRNTaken        = apperr.New(apperr.KindConflict, "mrn already assigned")
)
