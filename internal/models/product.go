package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product: catalog entry; Quantity is the central stock pool.
type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:150;not null" json:"name"`
	Model     string          `gorm:"size:100;index" json:"model"`
	Category  string          `gorm:"size:100;index" json:"category"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"unit_price"`
	GSTRate   decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"gst_rate"`
	Quantity  int             `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
