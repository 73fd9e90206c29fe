package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Known roles in ascending order of privilege. "pending" accounts hold no
// grants until an admin approves them.
const (
	RolePending      = "pending"
	RolePolicyholder = "policyholder"
	RoleHospital     = "hospital"
	RoleAdmin        = "admin"
)

// RequireRole returns middleware that checks if the actor holds at least one
// of the specified roles. Admins pass every role check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if actor.Role == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if actor.Role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
