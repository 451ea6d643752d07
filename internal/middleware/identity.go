package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ordermgmt/internal/model"
)

// Context keys set by Authenticate.
const (
	principalKey = "principal"
	emailKey     = "user_email"
	roleKey      = "role"
)

// Principal is the verified identity of the caller for one request.
type Principal struct {
	Email string
	Role  model.RoleName
}

// PrincipalFrom returns the principal stored by Authenticate, if any.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

// currentUserID identifies the caller for rate limiting; "anon" when
// the request is unauthenticated.
func currentUserID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok && p.Email != "" {
		return p.Email
	}
	return "anon"
}
