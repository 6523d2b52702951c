package visit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/clinic/internal/platform/apperr"
	"github.com/dentaldesk/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin))
	g.POST("/appointments/:id/visit", h.StartVisit)
	g.GET("/appointments/:id/visit", h.GetVisitByAppointment)
	g.GET("/visits/:id", h.GetVisit)
	g.PATCH("/visits/:id", h.UpdateNotes)
	g.POST("/visits/:id/items", h.AddItem)
	g.PUT("/visits/:id/items/:itemId", h.UpdateItem)
	g.DELETE("/visits/:id/items/:itemId", h.DeleteItem)
	g.POST("/visits/:id/prescriptions", h.AddPrescription)
	g.PUT("/prescriptions/:rxId", h.UpdatePrescription)
	g.DELETE("/prescriptions/:rxId", h.DeletePrescription)
}

type itemRequest struct {
	ProcedureID int64    `json:"procedure_id"`
	Price       *float64 `json:"price"`
}

// StartVisit opens the visit for appointment :id. With ?strict=true the
// appointment must be CHECKED_IN.
func (h *Handler) StartVisit(c echo.Context) error {
	apptID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Complaint string `json:"complaint"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	start := h.svc.StartVisit
	if strict, _ := strconv.ParseBool(c.QueryParam("strict")); strict {
		start = h.svc.StartCheckedInVisit
	}
	v, err := start(ctx, apptID, body.Complaint)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVisitByAppointment(c echo.Context) error {
	apptID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.GetVisitByAppointment(c.Request().Context(), apptID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateNotes(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var patch VisitPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.UpdateVisitNotes(c.Request().Context(), id, patch)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

// -- Items --

// Item mutations answer with the whole visit so the caller sees the new total.

func (h *Handler) AddItem(c echo.Context) error {
	visitID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ProcedureID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "procedure_id is required")
	}
	ctx := c.Request().Context()
	if _, err := h.svc.AddItem(ctx, visitID, req.ProcedureID, req.Price); err != nil {
		return apperr.HTTPError(err)
	}
	return h.respondVisit(c, http.StatusCreated, visitID)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	visitID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return err
	}
	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.UpdateItem(c.Request().Context(), visitID, itemID, req.ProcedureID, req.Price); err != nil {
		return apperr.HTTPError(err)
	}
	return h.respondVisit(c, http.StatusOK, visitID)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	visitID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteItem(c.Request().Context(), visitID, itemID); err != nil {
		return apperr.HTTPError(err)
	}
	return h.respondVisit(c, http.StatusOK, visitID)
}

func (h *Handler) respondVisit(c echo.Context, status int, visitID int64) error {
	v, err := h.svc.GetVisit(c.Request().Context(), visitID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(status, v)
}

// -- Prescriptions --

func (h *Handler) AddPrescription(c echo.Context) error {
	visitID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var rx Prescription
	if err := c.Bind(&rx); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddPrescription(c.Request().Context(), visitID, &rx); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	rxID, err := parseID(c, "rxId")
	if err != nil {
		return err
	}
	var patch PrescriptionPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rx, err := h.svc.UpdatePrescription(c.Request().Context(), rxID, patch)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	rxID, err := parseID(c, "rxId")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePrescription(c.Request().Context(), rxID); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
