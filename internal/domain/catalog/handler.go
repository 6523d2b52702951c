package catalog

import (
	"net/http"

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
	g.GET("/procedures", h.ListProcedures)
}

func (h *Handler) ListProcedures(c echo.Context) error {
	items, err := h.svc.ListProcedures(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}
