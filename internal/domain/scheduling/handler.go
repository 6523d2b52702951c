package scheduling

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/auth"
	"github.com/dentaldesk/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleAdmin))
	staff.GET("/appointments", h.ListAppointments)
	staff.POST("/appointments", h.CreateAppointment)
	staff.GET("/appointments/:id", h.GetAppointment)
	staff.PATCH("/appointments/:id/status", h.UpdateStatus)

	me := api.Group("/me", auth.RequirePatient())
	me.GET("/appointments", h.ListMyAppointments)
	me.POST("/appointments", h.BookMyAppointment)
}

type createAppointmentRequest struct {
	PatientID   int64     `json:"patient_id"`
	DoctorID    int64     `json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	DurationMin int       `json:"duration_min"`
	Remarks     string    `json:"remarks"`
}

func (r createAppointmentRequest) appointment() *Appointment {
	a := &Appointment{
		PatientID:   r.PatientID,
		DoctorID:    r.DoctorID,
		ScheduledAt: r.ScheduledAt,
		DurationMin: r.DurationMin,
		Remarks:     r.Remarks,
	}
	if a.DurationMin == 0 {
		a.DurationMin = DefaultDurationMin
	}
	return a
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a := req.appointment()
	if err := h.svc.CreateAppointment(c.Request().Context(), a); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.GetAppointmentView(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.UpdateAppointmentStatus(ctx, id, body.Status); err != nil {
		return apperr.HTTPError(err)
	}
	a, err := h.svc.GetAppointment(ctx, id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// ListAppointments accepts ?patient_id=, ?doctor_id= and ?date=YYYY-MM-DD.
func (h *Handler) ListAppointments(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListAppointments(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Slice(items, pagination.FromContext(c)))
}

// -- Patient self-service --

func (h *Handler) ListMyAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.ListAppointments(ctx, Filter{PatientID: auth.PatientIDFromContext(ctx)})
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Slice(items, pagination.FromContext(c)))
}

// BookMyAppointment books for the session's own patient record; any
// patient_id in the body is ignored.
func (h *Handler) BookMyAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	req.PatientID = auth.PatientIDFromContext(ctx)
	a := req.appointment()
	if err := h.svc.CreateAppointment(ctx, a); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = id
	}
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = id
	}
	if v := c.QueryParam("date"); v != "" {
		day, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		df := DayFilter(day)
		f.From, f.To = df.From, df.To
	}
	return f, nil
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
