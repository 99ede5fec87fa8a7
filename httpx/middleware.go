package httpx

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4/middleware"

	"github.com/adeilh/spacedash/logger"
)

const HeaderRequestID = "X-Request-Id"

// RequestIDMiddleware propagates or mints a request id and attaches it to the
// request context's logger.
func RequestIDMiddleware(log *logger.Logger) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			id := c.Request().Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, id)
			if log != nil {
				c.SetRequest(c.Request().WithContext(log.WithRequestID(c.Request().Context(), id)))
			}
			return next(c)
		}
	}
}

// RequestLoggerMiddleware logs one structured line per request.
func RequestLoggerMiddleware(log *logger.Logger) MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c Context, v middleware.RequestLoggerValues) error {
			if log == nil {
				return nil
			}
			ctx := log.WithFields(c.Request().Context(), map[string]any{
				"method":      v.Method,
				"uri":         v.URI,
				"status":      v.Status,
				"duration_ms": v.Latency.Milliseconds(),
			})
			if v.Error != nil {
				log.Error(ctx, "request.error", v.Error)
				return nil
			}
			log.Info(ctx, "request.complete")
			return nil
		},
	})
}
