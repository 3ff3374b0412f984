package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-multigraders/internal/utils"
)

// SubmitLimiter throttles grade submissions per grader and grading item. Requests without an
// identity share a bucket per client address.
func SubmitLimiter(perWindow int, window time.Duration, logger zerolog.Logger) fiber.Handler {
	if perWindow <= 0 {
		perWindow = 30
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:          perWindow,
		Expiration:   window,
		KeyGenerator: submissionKey,
		LimitReached: func(c *fiber.Ctx) error {
			grader, _ := c.Locals(LocalUserID).(string)
			logger.Warn().
				Str("user_id", grader).
				Str("area_id", c.Params("areaId")).
				Str("item_id", c.Params("itemId")).
				Msg("grade submission throttled")
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many submissions for this item, retry shortly")
		},
	})
}

func submissionKey(c *fiber.Ctx) string {
	grader, _ := c.Locals(LocalUserID).(string)
	if grader == "" {
		return "submit:addr:" + c.IP()
	}
	return strings.Join([]string{"submit", grader, c.Params("areaId"), c.Params("itemId")}, ":")
}
