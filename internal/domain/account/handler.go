package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/clinic/internal/domain/identity"
	"github.com/dentaldesk/clinic/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the session and recovery endpoints under /auth.
// They are reachable without a session; see auth.AuthSkipper.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/register", h.Register)
	g.POST("/admin/recovery/verify", h.VerifyAdminRecovery)
	g.POST("/admin/recovery/reset", h.ResetAdminPassword)
	g.POST("/patient/recovery/lookup", h.LookupPatientRecovery)
	g.POST("/patient/recovery/reset", h.ResetPatientPassword)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id := req.Identifier
	if id == "" {
		id = req.Username
	}
	sess, err := h.svc.Login(c.Request().Context(), id, req.Password)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if sess == nil {
		return apperr.HTTPError(ErrInvalidCredentials)
	}
	return c.JSON(http.StatusOK, sess)
}

type registerRequest struct {
	identity.Patient
	Password string `json:"password"`
}

type registerResponse struct {
	*Session
	Patient *identity.Patient `json:"patient"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := req.Patient
	sess, out, err := h.svc.Register(c.Request().Context(), &p, req.Password)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, registerResponse{Session: sess, Patient: out})
}

type adminRecoveryRequest struct {
	Username    string `json:"username"`
	Phone       string `json:"phone"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) VerifyAdminRecovery(c echo.Context) error {
	var req adminRecoveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ok, err := h.svc.VerifyAdminRecovery(c.Request().Context(), req.Username, req.Phone)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if !ok {
		return apperr.HTTPError(ErrRecoveryMismatch)
	}
	return c.JSON(http.StatusOK, map[string]bool{"verified": true})
}

func (h *Handler) ResetAdminPassword(c echo.Context) error {
	var req adminRecoveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetAdminPassword(c.Request().Context(), req.Username, req.Phone, req.NewPassword); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type patientRecoveryRequest struct {
	MRN         string `json:"mrn"`
	Phone       string `json:"phone"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) LookupPatientRecovery(c echo.Context) error {
	var req patientRecoveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	matches, err := h.svc.LookupPatientRecovery(c.Request().Context(), req.Phone)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if len(matches) == 0 {
		return apperr.HTTPError(ErrRecoveryMismatch)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": matches})
}

func (h *Handler) ResetPatientPassword(c echo.Context) error {
	var req patientRecoveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetPatientPassword(c.Request().Context(), req.MRN, req.Phone, req.NewPassword); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
