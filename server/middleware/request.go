package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/slotfinder/server/internal/observability"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = echo.HeaderXRequestID

// RequestContext attaches an observability.RequestContext to every request,
// echoes its ID back and records the outcome in metrics.
func RequestContext(logger *slog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rc := observability.NewRequestContextWithID(logger, req.Header.Get(RequestIDHeader), c.Path())
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))
			c.Response().Header().Set(RequestIDHeader, rc.RequestID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			if metrics != nil {
				metrics.RecordRequest(rc.Route, rc.Duration(), status >= 500)
			}
			rc.Debug("request completed",
				slog.String("method", req.Method),
				slog.Int(observability.LogFieldStatus, status),
				slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
			return nil
		}
	}
}
