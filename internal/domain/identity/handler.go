package identity

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

// RegisterRoutes wires the identity endpoints. public is the
// unauthenticated group (login/signup), api the token-guarded group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/signup", h.Signup)
	public.POST("/auth/login", h.Login)
	public.POST("/auth/login-did", h.LoginDID)
	public.POST("/hospital/login", h.LoginHospital)

	api.GET("/profile", h.Profile)

	adminGroup := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/me", h.Profile)
	adminGroup.GET("/users", h.ListUsers)
	adminGroup.PUT("/users/:id/approval", h.ApproveUser)
}

func (h *Handler) Signup(c echo.Context) error {
	var in SignupInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Signup(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	DID      string `json:"did"`
}

func (h *Handler) Login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) LoginDID(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.LoginDID(c.Request().Context(), in.DID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) LoginHospital(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.LoginHospital(c.Request().Context(), in.Username, in.Password)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Profile(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	u, err := h.svc.Profile(c.Request().Context(), actor.ID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

type approvalRequest struct {
	Role   string `json:"role"`
	Status string `json:"status"`
	DID    string `json:"did"`
}

func (h *Handler) ApproveUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in approvalRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Approve(c.Request().Context(), id, in.Role, in.Status, in.DID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}
