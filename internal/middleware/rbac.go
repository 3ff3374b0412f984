package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-multigraders/internal/grading"
	"github.com/noah-isme/gema-multigraders/internal/service"
	"github.com/noah-isme/gema-multigraders/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		roleValue := c.Locals(LocalUserRole)
		role := normalizeRoleValue(roleValue)
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// RequireCapability ensures the authenticated user holds at least one of the capabilities,
// either through the role or through the caps claim.
func RequireCapability(caps ...grading.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		viewer := ActorFromContext(c).Viewer()
		for _, capability := range caps {
			if viewer.Has(capability) {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}
}

// ActorFromContext builds the service actor from the values JWTProtected stored.
func ActorFromContext(c *fiber.Ctx) service.Actor {
	id, _ := c.Locals(LocalUserID).(string)
	role := normalizeRoleValue(c.Locals(LocalUserRole))

	capabilities := service.CapabilitiesForRole(role)
	seen := make(map[grading.Capability]struct{}, len(capabilities))
	for _, capability := range capabilities {
		seen[capability] = struct{}{}
	}
	if extra, ok := c.Locals(LocalUserCaps).([]string); ok {
		for _, raw := range extra {
			capability := grading.Capability(strings.ToLower(raw))
			if _, dup := seen[capability]; dup {
				continue
			}
			seen[capability] = struct{}{}
			capabilities = append(capabilities, capability)
		}
	}

	return service.Actor{ID: strings.TrimSpace(id), Role: role, Capabilities: capabilities}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
