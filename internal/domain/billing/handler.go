package billing

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
	staff.POST("/visits/:id/finalize", h.FinalizeVisit)
	staff.GET("/invoices", h.ListInvoices)
	staff.GET("/invoices/:id", h.GetInvoiceDetails)

	me := api.Group("/me", auth.RequirePatient())
	me.GET("/invoices", h.ListMyInvoices)
}

func (h *Handler) FinalizeVisit(c echo.Context) error {
	visitID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.svc.FinalizeVisit(c.Request().Context(), visitID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	items, err := h.svc.SearchInvoices(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Slice(items, pagination.FromContext(c)))
}

func (h *Handler) GetInvoiceDetails(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetInvoiceDetails(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListMyInvoices(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.ListPatientInvoices(ctx, auth.PatientIDFromContext(ctx))
	if err != nil {
		return apperr.HTTPError(err)
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
