package dashboard

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
	api.GET("/dashboard", h.Today, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Today(c echo.Context) error {
	st, err := h.svc.Today(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}
