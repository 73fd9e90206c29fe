package claim

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/auth"
	"github.com/verimed/insure/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/claims", h.File)
	api.GET("/claims", h.ListMine)
	api.GET("/claims/did/:did", h.ListByDID)

	adminGroup := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/claims", h.ListAll)
	adminGroup.PUT("/claims/:id/status", h.UpdateStatus)
}

func (h *Handler) File(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var in FileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.File(c.Request().Context(), actor, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) ListMine(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	claims, err := h.svc.ListForUser(c.Request().Context(), actor.ID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, claims)
}

// ListByDID serves the DID-indexed claim lookup. Policyholders can
// only query their own DID; hospitals and admins may query any.
func (h *Handler) ListByDID(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	did := c.Param("did")
	if actor.Role != auth.RoleAdmin && actor.Role != auth.RoleHospital && !strings.EqualFold(actor.DID, did) {
		return echo.NewHTTPError(http.StatusForbidden, "not your claims")
	}
	claims, err := h.svc.ListByDID(c.Request().Context(), did)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, claims)
}

func (h *Handler) ListAll(c echo.Context) error {
	pg := pagination.FromContext(c)
	views, total, err := h.svc.ListAll(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in statusRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.UpdateStatus(c.Request().Context(), actor, id, in.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cl)
}
