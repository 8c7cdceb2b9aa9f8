package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/etims-adapter/internal/config"
	"github.com/Checker-Finance/etims-adapter/internal/metrics"
	"github.com/Checker-Finance/etims-adapter/internal/rate"
	"github.com/Checker-Finance/etims-adapter/pkg/etims"
)

const (
	headerRequestID = "X-Request-ID"
	bearerPrefix    = "Bearer "
)

// RequestID tags every request with an X-Request-ID, reusing the caller's when present.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:    headerRequestID,
		Generator: uuid.NewString,
	})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// RequestLogger logs one line per request once the response status is known.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = errorResponse(err).StatusCode
		}
		logger.Info("api.request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("request_id", requestID(c)))
		return err
	}
}

// CORS applies the configured origin allow-list. A wildcard origin disables
// credentialed requests.
func CORS(cfg config.CORS) fiber.Handler {
	origins := strings.Join(cfg.AllowedOrigins, ",")
	credentials := cfg.AllowCredentials
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			origins = "*"
			credentials = false
			break
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     strings.Join(cfg.AllowedMethods, ","),
		AllowHeaders:     strings.Join(cfg.AllowedHeaders, ","),
		ExposeHeaders:    strings.Join(cfg.ExposedHeaders, ","),
		AllowCredentials: credentials,
		MaxAge:           cfg.MaxAge,
	})
}

// RateLimit throttles callers per client IP. A nil manager disables it.
func RateLimit(m *rate.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		key := c.IP()
		if m.Allow(key) {
			return c.Next()
		}
		wait := m.GetLimiter(key).RetryAfter()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(wait.Seconds())+1))
		metrics.IncInboundRejected("rate_limited")
		return &etims.APIError{Message: "Too many requests", StatusCode: fiber.StatusTooManyRequests}
	}
}

// RequireAuth rejects requests without a non-empty bearer token.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			metrics.IncInboundRejected("unauthenticated")
			return &etims.AuthenticationError{Message: "Authentication required"}
		}
		if strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)) == "" {
			metrics.IncInboundRejected("unauthenticated")
			return &etims.AuthenticationError{Message: "Invalid authentication token"}
		}
		return c.Next()
	}
}
