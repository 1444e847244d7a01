package middleware

import (
	"time"

	"github.com/fadilmartias/hireflow/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimiter is a per-IP sliding window limiter. Zero values fall back to
// 50 requests per minute.
func RateLimiter(max int, expiration time.Duration) fiber.Handler {
	if max == 0 {
		max = 50
	}
	if expiration == 0 {
		expiration = 1 * time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		LimitReached: func(c *fiber.Ctx) error {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusTooManyRequests,
				Message: "too many requests, please slow down",
			})
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
