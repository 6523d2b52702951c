package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic/internal/platform/auth"
)

const apiPrefix = "/api/v1/"

// AuditEntry records who touched which clinic resource and how.
type AuditEntry struct {
	UserID       string
	UserRoles    []string
	ResourceType string
	PatientID    string
	Action       string // read, create, update, delete
	IPAddress    string
	UserAgent    string
	Path         string
	Method       string
	Timestamp    time.Time
	RequestID    string
	StatusCode   int
}

// Audit emits a structured phi_access line for every /api/v1 request once
// the handler has run, so the final status is captured.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, apiPrefix) {
				return next(c)
			}

			err := next(c)

			entry := buildAuditEntry(c, err)
			evt := logger.Info()
			if entry.StatusCode >= http.StatusBadRequest {
				evt = logger.Warn()
			}
			evt.
				Str("type", "phi_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource_type", entry.ResourceType).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

func buildAuditEntry(c echo.Context, err error) AuditEntry {
	req := c.Request()
	ctx := req.Context()

	entry := AuditEntry{
		Timestamp:    time.Now().UTC(),
		Path:         req.URL.Path,
		Method:       req.Method,
		IPAddress:    c.RealIP(),
		UserAgent:    req.UserAgent(),
		StatusCode:   c.Response().Status,
		UserID:       auth.UserIDFromContext(ctx),
		UserRoles:    auth.RolesFromContext(ctx),
		Action:       httpMethodToAction(req.Method),
		ResourceType: extractResourceType(req.URL.Path),
		PatientID:    extractPatientID(c),
	}
	if rid, ok := c.Get("request_id").(string); ok {
		entry.RequestID = rid
	}
	// The response is not committed yet when the handler returned an error.
	if err != nil && !c.Response().Committed {
		if he, ok := err.(*echo.HTTPError); ok {
			entry.StatusCode = he.Code
		} else {
			entry.StatusCode = http.StatusInternalServerError
		}
	}
	return entry
}

// httpMethodToAction maps HTTP methods to audit action codes.
func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResourceType returns the first path segment after /api/v1/:
//   - /api/v1/patients       -> patients
//   - /api/v1/visits/3/items -> visits
func extractResourceType(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, apiPrefix), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

// extractPatientID finds the patient a request concerns: a patient session,
// a /patients/<id> path, or a patient_id query parameter.
func extractPatientID(c echo.Context) string {
	if id := auth.PatientIDFromContext(c.Request().Context()); id != 0 {
		return strconv.FormatInt(id, 10)
	}

	path := c.Request().URL.Path
	if rest, ok := strings.CutPrefix(path, apiPrefix+"patients/"); ok {
		seg := strings.SplitN(rest, "/", 2)[0]
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			return seg
		}
	}

	return c.QueryParam("patient_id")
}
