package audit

import (
	"strconv"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/database"
	"solar-inventory-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/audit-logs?entity_type=stock_request&entity_id=12&user_id=3&limit=100
// Admins only see their own actions.
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		dbq := database.DB.WithContext(c.UserContext()).Model(&models.AuditLog{})

		switch {
		case actor.IsSuperAdmin():
			if uidStr := c.Query("user_id"); uidStr != "" {
				uid, err := strconv.ParseUint(uidStr, 10, 64)
				if err != nil {
					return apperr.Validation("user_id must be a number")
				}
				dbq = dbq.Where("user_id = ?", uid)
			}
		case actor.IsAdmin():
			dbq = dbq.Where("user_id = ?", actor.ID)
		default:
			return apperr.Authorization("role %s cannot read audit logs", actor.Role)
		}

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if entityID := c.Query("entity_id"); entityID != "" {
			dbq = dbq.Where("entity_id = ?", entityID)
		}
		if action := c.Query("action"); action != "" {
			dbq = dbq.Where("action = ?", action)
		}

		limit := c.QueryInt("limit", 200)
		if limit <= 0 || limit > 1000 {
			limit = 200
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return apperr.System("list audit logs", err)
		}

		return c.JSON(fiber.Map{"success": true, "data": logs})
	}
}
