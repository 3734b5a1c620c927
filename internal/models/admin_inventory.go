package models

import "time"

// AdminInventory: one admin's (or agent's) pool of a product. Rows exist only
// while Quantity > 0.
type AdminInventory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AdminID   uint      `gorm:"not null;uniqueIndex:idx_admin_inventories_admin_product" json:"admin_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_admin_inventories_admin_product;index" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
