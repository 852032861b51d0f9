package httpserver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
	"github.com/pscheid92/eventsub-gate/internal/platform/correlation"
	apperrors "github.com/pscheid92/eventsub-gate/internal/platform/errors"
)

type errorRecorder interface {
	RecordError(errType string)
}

// correlationMiddleware stamps a fresh correlation ID and, when present, the
// EventSub message ID onto the request context.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		if messageID := c.Request().Header.Get(eventsub.HeaderMessageID); messageID != "" {
			ctx = correlation.WithMessageID(ctx, messageID)
		}
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// ErrorHandlingMiddleware renders handler errors as ErrorResponse JSON. Echo's
// own HTTP errors (unknown route, body too large) pass through unchanged.
// recorder may be nil.
func ErrorHandlingMiddleware(recorder errorRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := apperrors.AsStructuredError(err)
			logError(c, structuredErr)
			if recorder != nil {
				recorder.RecordError(string(structuredErr.Type))
			}

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// logError never logs the request body or headers; Context only carries
// subscription and record IDs.
func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeAuthentication:
		slog.WarnContext(ctx, "Rejected request", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeConfiguration:
		slog.ErrorContext(ctx, "Configuration error", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}
