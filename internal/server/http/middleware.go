package http

import (
	"strconv"
	"time"

	"chessd/internal/server/logging"
	"chessd/internal/server/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request uuid on every response
const RequestIDHeader = "requestId"

const requestIDKey = "requestid"

func requestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     RequestIDHeader,
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	})
}

// RequestIDFromCtx returns the id assigned by the request id middleware
func RequestIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// requestContext copies the request id into the user context so every layer below logs it
func requestContext(c *fiber.Ctx) error {
	if id := RequestIDFromCtx(c); id != "" {
		c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
	}
	return c.Next()
}

// accessLog writes one line per request with its duration and feeds the HTTP metrics
func accessLog(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		metrics.RequestsTotal.WithLabelValues(c.Method(), strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(c.Method()).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("took", elapsed),
		}
		if user, ok := c.Locals(userIDKey).(string); ok && user != "" {
			fields = append(fields, zap.String("subject", user))
		}
		logging.FromContext(c.UserContext(), logger).Info("request", fields...)
		return nil
	}
}
