package catalog

import "github.com/dentaldesk/clinic/internal/platform/apperr"

var ErrProcedureNotFound = apperr.New(apperr.KindNotFound, "procedure not found")
