package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-api/internal/apperr"
	"github.com/iliyamo/inventory-api/internal/model"
)

// GetAllUsers lists every user, newest first. Admin only.
func (h *AuthHandler) GetAllUsers(c echo.Context) error {
	users, err := h.Svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "All users fetched successfully.", model.PublicUsers(users))
}

// GetUsersByStore lists the users of ?store_id=.
func (h *AuthHandler) GetUsersByStore(c echo.Context) error {
	raw := c.QueryParam("store_id")
	if raw == "" {
		return apperr.BadRequest("store_id is required.")
	}
	storeID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return apperr.BadRequest("store_id must be a positive integer.")
	}
	users, err := h.Svc.ListUsersByStore(c.Request().Context(), storeID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Users for store fetched successfully.", model.PublicUsers(users))
}
