package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ordermgmt/internal/model"
)

var (
	errAuthRequired = echo.Map{"message": "authentication required"}
	errForbidden    = echo.Map{"message": "forbidden"}
)

// RequireAuth rejects requests without a principal with 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := PrincipalFrom(c); !ok {
				return c.JSON(http.StatusUnauthorized, errAuthRequired)
			}
			return next(c)
		}
	}
}

// RequireCapability allows the request only when the principal's role
// carries want: 401 without a principal, 403 when the capability set of
// the role does not contain it.
func RequireCapability(want model.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errAuthRequired)
			}
			if !p.Role.Can(want) {
				return c.JSON(http.StatusForbidden, errForbidden)
			}
			return next(c)
		}
	}
}
