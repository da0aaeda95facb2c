package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/ledger-system/internal/api/middleware"
	"github.com/99minutos/ledger-system/internal/core/domain"
)

// ctxProfile returns the caller loaded by the LoadProfile middleware. Its
// absence means the route was mounted without authentication.
func ctxProfile(c echo.Context) (*domain.Profile, error) {
	p, _ := c.Get(middleware.ContextKeyProfile).(*domain.Profile)
	if p == nil || p.ID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
