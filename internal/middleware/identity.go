package middleware

// identity.go holds the context keys the auth gate populates and the helpers
// handlers and other middleware use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-api/internal/model"
)

const (
	ctxUser   = "user"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// CurrentUser returns the user resolved by Auth, if any.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ctxUser).(*model.User)
	return u, ok && u != nil
}

func setIdentity(c echo.Context, u *model.User) {
	c.Set(ctxUser, u)
	c.Set(ctxUserID, strconv.FormatUint(u.ID, 10))
	c.Set(ctxRole, string(u.Role))
}

// userID returns the authenticated user's id as a string, or "anon".
func userID(c echo.Context) string {
	if v, ok := c.Get(ctxUserID).(string); ok && v != "" {
		return v
	}
	return "anon"
}
