package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/works-uploader/internal/domain"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, location string, payload any) error {
	c.Response().Header().Set(echo.HeaderLocation, location)
	return c.JSON(http.StatusCreated, payload)
}

func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func BadRequest(c echo.Context, err error) error {
	log(c, slog.LevelInfo, "Bad request", err.Error())
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	log(c, slog.LevelInfo, "Bad request", msg)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context, msg string) error {
	log(c, slog.LevelInfo, "Unauthorized", msg)
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

func Forbidden(c echo.Context, msg string) error {
	log(c, slog.LevelInfo, "Forbidden", msg)
	return c.JSON(http.StatusForbidden, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	log(c, slog.LevelInfo, "Not found", msg)
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Unprocessable(c echo.Context, err *domain.ValidationError) error {
	log(c, slog.LevelInfo, "Validation failed", err.Error())
	return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: err.Fields})
}

func InternalError(c echo.Context, err error) error {
	log(c, slog.LevelError, "Internal error", err.Error())
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// Error maps a usecase error to its response.
func Error(c echo.Context, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return Unprocessable(c, verr)
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return Unauthorized(c, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return Forbidden(c, "forbidden")
	default:
		return InternalError(c, err)
	}
}

func log(c echo.Context, level slog.Level, msg, detail string) {
	ctx := c.Request().Context()
	attrs := []slog.Attr{
		slog.String("detail", detail),
		slog.String("path", c.Path()),
		slog.String("module", "rest"),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	slog.LogAttrs(ctx, level, msg, attrs...)
}
