package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

// RBAC admits callers whose role is one of roles. Must run after LoadProfile.
func RBAC(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := c.Get(ContextKeyProfile).(*domain.Profile)
			if p == nil {
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
			}
			if !slices.Contains(roles, p.Role) {
				return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("access forbidden for role %q", p.Role))
			}
			return next(c)
		}
	}
}
