package auth

import (
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/config"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserNameKey = "user_name"
	CtxUserRoleKey = "user_role"
	CtxAdminIDKey  = "admin_id"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperr.Authentication("missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return apperr.Authentication("Authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, strings.TrimSpace(parts[1]))
		if err != nil {
			return apperr.Authentication("invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserNameKey, claims.Name)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxAdminIDKey, claims.AdminID)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return apperr.Authentication("missing user role")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return apperr.Authorization("role %s is not allowed to perform this action", role)
	}
}

// ActorFrom builds the authenticated caller from the locals set by JWTMiddleware.
func ActorFrom(c *fiber.Ctx) (stock.Actor, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || id == 0 {
		return stock.Actor{}, apperr.Authentication("authentication required")
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return stock.Actor{}, apperr.Authentication("authentication required")
	}
	name, _ := c.Locals(CtxUserNameKey).(string)
	adminID, _ := c.Locals(CtxAdminIDKey).(*uint)

	return stock.Actor{ID: id, Name: name, Role: role, AdminID: adminID}, nil
}
