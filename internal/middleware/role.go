package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-api/internal/apperr"
	"github.com/iliyamo/inventory-api/internal/metrics"
	"github.com/iliyamo/inventory-api/internal/model"
)

// RequireRole lets the request through only when the user stored by Auth has
// one of roles. It must run after Auth; without an identity it answers 401.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return apperr.Unauthorized("Unauthorized request.")
			}
			if !model.Authorize(u, roles...) {
				metrics.RecordRoleDenial(c.Path())
				return apperr.Forbidden("You do not have permission to access this resource.")
			}
			return next(c)
		}
	}
}
