package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/dto"
	"github.com/densematrix/study_api/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RateLimiter counts one request from identifier against endpointType's window.
type RateLimiter interface {
	IsAllowed(ctx context.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error)
}

// RateLimit limits requests per device for one endpoint type. The device comes
// from the X-Device-Id header, then a device_id field in the JSON body, then
// the client IP.
func RateLimit(limiter RateLimiter, endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := requestIdentifier(c)

		allowed, info, err := limiter.IsAllowed(c.UserContext(), identifier, endpointType)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", endpointType).Msg("Rate limit check error")
			return c.Next()
		}

		if info != nil && info.Limit > 0 {
			c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			if info.ResetTime != nil {
				c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
			}
		}

		if !allowed {
			if info != nil && info.ResetTime != nil {
				retryAfter := int(time.Until(*info.ResetTime).Seconds())
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(retryAfter, 1)))
			}
			return shared.NewAppError(fiber.StatusTooManyRequests, shared.CodeRateLimited, nil, "Too many requests. Please try again later.")
		}

		return c.Next()
	}
}

func requestIdentifier(c *fiber.Ctx) string {
	if id, ok := c.Locals(shared.DeviceID).(string); ok && id != "" {
		return id
	}
	if id := strings.TrimSpace(c.Get(shared.HeaderDeviceID)); id != "" {
		return id
	}
	if id := deviceIDFromBody(c.Body()); id != "" {
		return id
	}
	return c.IP()
}

func deviceIDFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := sonic.Unmarshal(body, &req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.DeviceID)
}
