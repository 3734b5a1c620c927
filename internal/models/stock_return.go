package models

import "time"

type ReturnStatus string

const (
	ReturnPending   ReturnStatus = "pending"
	ReturnCompleted ReturnStatus = "completed"
)

// StockReturn: excess stock an admin sends back to the central pool.
type StockReturn struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	AdminID         uint         `gorm:"index;not null" json:"admin_id"`
	AdminName       string       `gorm:"size:100" json:"admin_name"`
	ProductID       uint         `gorm:"index;not null" json:"product_id"`
	Product         *Product     `json:"product,omitempty"`
	Quantity        int          `gorm:"not null" json:"quantity"`
	Status          ReturnStatus `gorm:"size:20;index;not null;default:pending" json:"status"`
	Reason          string       `gorm:"size:500" json:"reason"`
	ProcessedByID   *uint        `json:"processed_by_id"`
	ProcessedByName string       `gorm:"size:100" json:"processed_by_name"`
	ProcessedAt     *time.Time   `json:"processed_at"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
