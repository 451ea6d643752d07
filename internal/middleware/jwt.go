// Package middleware holds the echo middleware of the service: bearer
// authentication, role checks, rate limiting, response caching and
// request logging.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ordermgmt/internal/utils"
)

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	Verify(raw string) (*utils.Claims, error)
}

// Authenticate reads "Authorization: Bearer <token>" and, when the token
// verifies, stores the caller's Principal in the context. It never
// rejects a request: a missing, malformed or invalid token leaves the
// request unauthenticated and RequireAuth/RequireCapability decide.
func Authenticate(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}
			claims, err := v.Verify(raw)
			if err != nil {
				return next(c)
			}
			p := Principal{Email: claims.Subject, Role: claims.Role}
			c.Set(principalKey, p)
			c.Set(emailKey, p.Email)
			c.Set(roleKey, string(p.Role))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}
