package middleware

import (
	"log/slog"
	"net/http"

	"dbaportal/config"
	deliverycontext "dbaportal/internal/delivery/context"
	"dbaportal/internal/delivery/response"
	domainerrors "dbaportal/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ErrorMiddleware handles errors in the HTTP pipeline
type ErrorMiddleware struct {
	logger      *slog.Logger
	exposeCause bool
}

// NewErrorMiddleware creates a new error handling middleware.
// Internal causes reach the client only with env.debug outside production.
func NewErrorMiddleware(logger *slog.Logger, cfg *config.Config) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger:      logger,
		exposeCause: cfg.Env.Debug && !cfg.IsProduction(),
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		var details any
		if m.exposeCause && appErr.Details() != "" {
			details = appErr.Details()
		}
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			m.log(c).Error("Request failed", slog.Any("error", err))
		}
		_ = response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), details)

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		mapped := fromHTTPError(httpErr)
		_ = response.Error(c, mapped.HTTPCode(), mapped.ErrorCode(), mapped.Message(), nil)

		return
	}

	m.log(c).Error("Unhandled error",
		slog.Any("error", err),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)

	var details any
	if m.exposeCause {
		details = err.Error()
	}
	_ = response.Error(c, http.StatusInternalServerError, domainerrors.ErrInternalError.ErrorCode(), domainerrors.ErrInternalError.Message(), details)
}

func (m *ErrorMiddleware) log(c echo.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)
}

// fromHTTPError maps echo's router and middleware errors onto the error taxonomy.
func fromHTTPError(httpErr *echo.HTTPError) *domainerrors.BaseError {
	switch httpErr.Code {
	case http.StatusNotFound:
		return domainerrors.ErrRouteNotFound
	case http.StatusUnauthorized:
		return domainerrors.ErrUnauthenticated
	case http.StatusForbidden:
		return domainerrors.ErrForbidden
	case http.StatusTooManyRequests:
		return domainerrors.ErrTooManyRequests
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return domainerrors.ErrServiceUnavailable
	}

	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		message = msg
	}
	code := "HTTP_ERROR"
	if httpErr.Code == http.StatusBadRequest {
		code = domainerrors.ErrValidationFailed.ErrorCode()
	}

	return domainerrors.NewBaseError(httpErr.Code, code, message, "")
}
