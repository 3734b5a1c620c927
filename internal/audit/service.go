package audit

import (
	"encoding/json"
	"fmt"

	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"

	"gorm.io/gorm"
)

type LogOptions struct {
	Actor       stock.Actor
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog appends an audit row on tx so it commits or rolls back with the
// change it describes.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		UserID:      opts.Actor.ID,
		UserName:    opts.Actor.Name,
		UserRole:    opts.Actor.Role,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
