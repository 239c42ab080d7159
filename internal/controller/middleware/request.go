package middleware

import (
	"context"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type requestIDKey struct{}

// RequestID берёт X-Request-ID клиента или генерирует новый
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			ctx := context.WithValue(c.Request().Context(), requestIDKey{}, id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequestIDFrom id запроса из контекста
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestLogger пишет в лог каждый запрос: 5xx - Error, 4xx - Warn
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			path := c.Path()
			if path == "" {
				path = req.URL.Path
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", RequestIDFrom(req.Context())),
			}
			if caller, ok := service.CallerFrom(req.Context()); ok {
				fields = append(fields, zap.Int64("caller_id", caller.ID), zap.String("role", string(caller.Role)))
			}

			switch {
			case status >= 500:
				logger.Error("HTTP request", fields...)
			case status >= 400:
				logger.Warn("HTTP request", fields...)
			default:
				logger.Info("HTTP request", fields...)
			}
			return nil
		}
	}
}
