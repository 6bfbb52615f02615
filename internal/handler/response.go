package handler

import "github.com/labstack/echo/v4"

// envelope wraps successful responses.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c echo.Context, status int, msg string, data any) error {
	if data == nil {
		data = struct{}{}
	}
	return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}
