package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/status"
)

// Response is the envelope every API reply uses.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(e *core.RequestEvent, code int, message string, data any) error {
	return e.JSON(code, Response{Success: true, Message: message, Data: data})
}

func fail(e *core.RequestEvent, err error) error {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", e.Request.Method,
			"path", e.Request.URL.Path,
			"error", err,
		)
	}
	return e.JSON(code, Response{Success: false, Message: status.Message(err)})
}

func httpStatus(err error) int {
	switch status.KindOf(err) {
	case status.ErrValidation:
		return http.StatusBadRequest
	case status.ErrNotFound:
		return http.StatusNotFound
	case status.ErrConflict:
		return http.StatusConflict
	case status.ErrAuth:
		if errors.Is(err, status.ErrForbidden) || errors.Is(err, status.ErrUserBlocked) {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the request body, reporting malformed input as a validation error.
func bind(e *core.RequestEvent, dst any) error {
	if err := e.BindBody(dst); err != nil {
		return status.Validationf("invalid request body")
	}
	return nil
}
