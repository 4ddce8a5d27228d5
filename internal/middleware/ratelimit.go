package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit allows limit requests per window for each session, falling back to
// the client IP for unauthenticated requests.
func RateLimit(limit int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          limit,
		Expiration:   window,
		KeyGenerator: rateLimitKey,
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return reject(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please slow down")
		},
	})
}

func rateLimitKey(c *fiber.Ctx) string {
	if session, ok := SessionFrom(c); ok {
		return "session:" + session.ID
	}
	return "ip:" + c.IP()
}
