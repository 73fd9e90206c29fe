package inbox

import (
	"net/http"

	"github.com/google/uuid"
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
	api.POST("/messages", h.Send)
	api.GET("/messages", h.ListMine)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.PUT("/messages/:id/response", h.Respond)
}

type sendRequest struct {
	Content string `json:"content"`
}

func (h *Handler) Send(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var in sendRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.Send(c.Request().Context(), actor, in.Content)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMine(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	msgs, err := h.svc.ListMine(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, msgs)
}

type respondRequest struct {
	Response string `json:"response"`
}

func (h *Handler) Respond(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in respondRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.Respond(c.Request().Context(), actor, id, in.Response)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}
