package credential

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/procedures/record", h.RecordProcedure, auth.RequireRole(auth.RoleHospital))
	api.GET("/credentials/:did", h.ListBySubject)
}

func (h *Handler) RecordProcedure(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var in IssueInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cred, err := h.svc.Issue(c.Request().Context(), actor, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, cred)
}

// ListBySubject returns a subject's credentials. Policyholders can only
// read their own; hospitals and admins can read any subject's.
func (h *Handler) ListBySubject(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	did := c.Param("did")
	if actor.Role != auth.RoleAdmin && actor.Role != auth.RoleHospital && !strings.EqualFold(actor.DID, did) {
		return echo.NewHTTPError(http.StatusForbidden, "not your credentials")
	}
	creds, err := h.svc.FindBySubject(c.Request().Context(), did)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, creds)
}
