package middleware

import (
	"strings"

	"github.com/densematrix/study_api/shared"
	"github.com/gofiber/fiber/v2"
)

const maxDeviceIDLength = 255

// RequireDevice stores the X-Device-Id header in Locals under shared.DeviceID.
func RequireDevice() fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := strings.TrimSpace(c.Get(shared.HeaderDeviceID))
		if deviceID == "" {
			return shared.NewAppError(fiber.StatusBadRequest, shared.CodeDeviceIDRequired, nil, "X-Device-Id header is required")
		}
		if len(deviceID) > maxDeviceIDLength {
			return shared.NewAppError(fiber.StatusBadRequest, shared.CodeDeviceIDRequired, nil, "X-Device-Id header is too long")
		}

		// fiber recycles header buffers after the handler returns.
		c.Locals(shared.DeviceID, strings.Clone(deviceID))
		return c.Next()
	}
}
