package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ContextKeyProfileID holds the caller id taken from the token.
const ContextKeyProfileID = "profile_id"

// Auth validates the JWT and injects the caller's profile id into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			profileID, _ := claims[ContextKeyProfileID].(string)
			if profileID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing profile identity")
			}
			c.Set(ContextKeyProfileID, profileID)

			return next(c)
		}
	}
}

// IssueToken signs an HS256 token for profileID. A ttl <= 0 issues a token
// without expiry.
func IssueToken(jwtSecret, profileID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		ContextKeyProfileID: profileID,
		"iat":               time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}
