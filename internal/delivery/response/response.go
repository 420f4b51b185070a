// Package response writes the JSON envelopes shared by every endpoint.
package response

import (
	"net/http"

	deliverycontext "dbaportal/internal/delivery/context"
	domainerrors "dbaportal/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

// Success returns a successful response
func Success(c echo.Context, statusCode int, data any, message string) error {
	return c.JSON(statusCode, domainerrors.SuccessResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		RequestID: deliverycontext.GetRequestID(c),
	})
}

// Error returns an error response. Details are dropped for authentication,
// authorization and server errors.
func Error(c echo.Context, statusCode int, errorCode string, message string, details any) error {
	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		details = nil
	}

	return c.JSON(statusCode, domainerrors.ErrorResponse{
		Success:   false,
		Error:     errorCode,
		Message:   message,
		Details:   details,
		RequestID: deliverycontext.GetRequestID(c),
	})
}

// AppError writes the envelope of a predefined error.
func AppError(c echo.Context, err domainerrors.AppError) error {
	return Error(c, err.HTTPCode(), err.ErrorCode(), err.Message(), nil)
}
