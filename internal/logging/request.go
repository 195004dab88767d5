package logging

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/railway-reservation/internal/service"
)

// HandlerErrorKey is the context key under which handlers leave the cause
// of a 5xx response for RequestLogger.
const HandlerErrorKey = "handler_error"

// RequestLogger logs one line per HTTP request with method, path, status
// and latency.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo's error handler write the response so the status is final
				c.Error(err)
			}
			req := c.Request()
			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.String("uri", req.RequestURI),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if uid, ok := c.Get("user_id").(uint64); ok {
				fields = append(fields, zap.Uint64("user_id", uid))
			}
			if cause, ok := c.Get(HandlerErrorKey).(error); ok {
				fields = append(fields, zap.Error(cause))
			}
			if status >= 500 {
				logger.Error("request", fields...)
			} else {
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}

func isStorageFailure(err error) bool {
	return errors.Is(err, service.ErrStorageUnavailable)
}
