package scheduling

import "github.com/dentaldesk/clinic/internal/platform/apperr"

var (
	ErrAppointmentNotFound = apperr.New(apperr.KindNotFound, "appointment not found")
	ErrSchedulingConflict  = apperr.New(apperr.KindConflict,
		"time slot unavailable: overlaps an existing appointment or its buffer")
)
