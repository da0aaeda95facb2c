package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

// ContextKeyProfile holds the caller's *domain.Profile.
const ContextKeyProfile = "profile"

// ProfileLoader resolves a profile by id.
type ProfileLoader interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
}

// LoadProfile resolves the authenticated profile id into the caller profile.
// Must run after Auth. Unknown profiles are rejected with 401.
func LoadProfile(loader ProfileLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := c.Get(ContextKeyProfileID).(string)
			if id == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			p, err := loader.GetProfile(c.Request().Context(), id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "unknown profile")
				}
				return err
			}

			c.Set(ContextKeyProfile, p)
			return next(c)
		}
	}
}
