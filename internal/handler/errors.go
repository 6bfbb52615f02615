package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/inventory-api/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
}

// ErrorHandler is installed as echo.HTTPErrorHandler and is the only place
// errors become responses. Internal failures are logged in full and answered
// with a generic message.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := translate(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Warn("write error response", zap.Error(werr))
		}
	}
}

func translate(err error) (int, errorBody) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.KindInternal {
			return http.StatusInternalServerError, errorBody{Error: apperr.KindInternal, Message: "internal server error"}
		}
		return ae.Kind.Status(), errorBody{Error: ae.Kind, Message: ae.Message}
	}

	// Errors raised by echo itself: unknown routes, bad methods, body limit.
	// The status follows the kind, so 405/413/415 are answered as 400.
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		kind := kindForStatus(he.Code)
		return kind.Status(), errorBody{Error: kind, Message: msg}
	}
	return http.StatusInternalServerError, errorBody{Error: apperr.KindInternal, Message: "internal server error"}
}

func kindForStatus(code int) apperr.Kind {
	switch code {
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindConflict
	case http.StatusTooManyRequests:
		return apperr.KindTooManyRequests
	default:
		return apperr.KindBadRequest
	}
}
