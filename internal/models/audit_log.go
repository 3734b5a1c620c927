package models

import "time"

type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionDelete   AuditAction = "delete"
	AuditActionDispatch AuditAction = "dispatch"
	AuditActionReject   AuditAction = "reject"
	AuditActionConfirm  AuditAction = "confirm"
	AuditActionProcess  AuditAction = "process"
)

// AuditLog records who changed which record. Stock movements themselves are
// in InventoryTransaction; this is the CRUD trail around them.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   uint     `gorm:"index" json:"user_id"`
	UserName string   `gorm:"size:100" json:"user_name"`
	UserRole UserRole `gorm:"size:20" json:"user_role"`

	// e.g. "stock_request", "sale", "stock_return", "admin_inventory", "product"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:36;index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// JSON snapshots before/after
	BeforeData string `gorm:"type:text" json:"before_data"`
	AfterData  string `gorm:"type:text" json:"after_data"`
}
