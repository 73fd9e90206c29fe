package registration

import (
	"net/http"

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
	api.POST("/registrations", h.Register)
	api.GET("/registrations", h.ListMine)
	api.GET("/registrations/:id", h.Get)
}

type registerRequest struct {
	PolicyID uuid.UUID `json:"policy_id"`
}

func (h *Handler) Register(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var in registerRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.PolicyID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "policy_id is required")
	}
	v, err := h.svc.Register(c.Request().Context(), actor.ID, in.PolicyID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) ListMine(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	pg := pagination.FromContext(c)
	views, total, err := h.svc.ListForUser(c.Request().Context(), actor.ID,
		Filter(c.QueryParam("status")), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.FindByID(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if v.UserID != actor.ID && actor.Role != auth.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "not your registration")
	}
	return c.JSON(http.StatusOK, v)
}
