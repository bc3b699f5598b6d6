package services

import (
	"github.com/gofiber/fiber/v2"
)

// hasAnyRole reports whether the gateway-forwarded roles on this request
// include at least one of wanted. The Gateway is the source of truth for
// authentication; this is only the coarse authorization gate on top.
func hasAnyRole(c *fiber.Ctx, wanted ...string) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, have := range roles {
		for _, w := range wanted {
			if have == w {
				return true
			}
		}
	}
	return false
}
