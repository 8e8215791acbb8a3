package middleware

import (
	"context"
	"strategy-lab/pkg/logger"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const HeaderRequestID = "X-Request-ID"

// WithRequestContext tags every request with an id, stores a request-scoped logger in
// the request context and bounds the handler with timeout.
func WithRequestContext(log *logger.Logger, timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, requestID)

			ctx := logger.NewContext(c.Request().Context(), log.With(
				logger.RequestIDField(requestID),
				logger.StringField("method", c.Request().Method),
				logger.StringField("path", c.Path()),
			))
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			c.SetRequest(c.Request().WithContext(ctx))

			start := time.Now()
			err := next(c)
			log.DebugContext(ctx, "request served",
				logger.IntField("status", c.Response().Status),
				logger.DurationField("latency", time.Since(start)),
			)
			return err
		}
	}
}
