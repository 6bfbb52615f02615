package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-api/internal/model"
)

// AccessCookie is the cookie carrying the access token.
const AccessCookie = "access_token"

// Authenticator resolves a raw access token to a stored user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*model.User, error)
}

// Auth is the gate in front of every protected route. The access token is
// read from the access_token cookie, falling back to an
// "Authorization: Bearer" header. On success the user is stored in the
// context under "user" (with "user_id" and "role" alongside); any failure is
// returned as is for the error handler to render.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := authn.Authenticate(c.Request().Context(), accessToken(c))
			if err != nil {
				return err
			}
			setIdentity(c, u)
			return next(c)
		}
	}
}

func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
