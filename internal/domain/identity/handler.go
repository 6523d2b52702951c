package identity

import (
	"net/http"
	"strconv"

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
	staff.GET("/patients", h.ListPatients)
	staff.POST("/patients", h.RegisterPatient)
	staff.GET("/patients/resolve", h.ResolvePatient)
	staff.GET("/patients/:id", h.GetPatient)
	staff.POST("/doctors", h.AddDoctor)
	staff.PATCH("/doctors/:id", h.UpdateDoctor)

	// Patients pick a doctor when booking from the portal.
	read := api.Group("", auth.RequireRole(auth.RolePatient))
	read.GET("/doctors", h.ListDoctors)
	read.GET("/doctors/:id", h.GetDoctor)

	me := api.Group("/me", auth.RequirePatient())
	me.GET("", h.GetMe)
}

type registerPatientRequest struct {
	Patient
	Password string `json:"password"`
}

type registerPatientResponse struct {
	*Patient
	Created bool `json:"created"`
}

// -- Patients --

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req registerPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := req.Patient
	p.ID = 0
	out, created, err := h.svc.RegisterPatient(c.Request().Context(), &p, req.Password)
	if err != nil {
		return apperr.HTTPError(err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, registerPatientResponse{Patient: out, Created: created})
}

func (h *Handler) ResolvePatient(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	p, err := h.svc.ResolvePatient(c.Request().Context(), q)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetMe returns the record of the patient bound to the session.
func (h *Handler) GetMe(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.svc.GetPatient(ctx, auth.PatientIDFromContext(ctx))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	if phone := c.QueryParam("phone"); phone != "" {
		items, err := h.svc.FindByPhone(ctx, phone)
		if err != nil {
			return apperr.HTTPError(err)
		}
		return c.JSON(http.StatusOK, pagination.Slice(items, pg))
	}
	items, err := h.svc.SearchPatients(ctx, c.QueryParam("q"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Slice(items, pg))
}

// -- Doctors --

func (h *Handler) AddDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = 0
	if err := h.svc.AddDoctor(c.Request().Context(), &d); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var patch DoctorPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), id, patch)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListDoctors returns every doctor; ?active=Y limits the list to doctors
// taking appointments.
func (h *Handler) ListDoctors(c echo.Context) error {
	items, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	if c.QueryParam("active") == ActiveYes {
		active := items[:0:0]
		for _, d := range items {
			if d.IsActive() {
				active = append(active, d)
			}
		}
		items = active
	}
	return c.JSON(http.StatusOK, pagination.Slice(items, pagination.FromContext(c)))
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
