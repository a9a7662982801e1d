package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSend status values.
const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Status: statusSuccess, Data: data})
}

// fail reports a client-side problem; data is omitted when nil.
func fail(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, envelope{Status: statusFail, Message: message, Data: data})
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]map[string]string{
		"validation_errors": fieldErrors,
	})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

// internalError hides the cause from clients; callers log it first.
func internalError(c echo.Context, message string) error {
	code := http.StatusInternalServerError
	return c.JSON(code, envelope{Status: statusError, Message: message, Code: code})
}
