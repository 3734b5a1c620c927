package models

import "time"

type InventoryTransactionType string

const (
	TxnPurchase   InventoryTransactionType = "purchase"
	TxnSale       InventoryTransactionType = "sale"
	TxnReturn     InventoryTransactionType = "return"
	TxnAdjustment InventoryTransactionType = "adjustment"
	TxnTransfer   InventoryTransactionType = "transfer"
)

// InventoryTransaction is append-only. Quantity is signed (negative = outflow
// of the pool named by AdminID; nil AdminID is the central pool). The back
// references are plain columns so deleting a sale or request never rewrites
// history.
type InventoryTransaction struct {
	ID              uint                     `gorm:"primaryKey" json:"id"`
	ProductID       uint                     `gorm:"index;not null" json:"product_id"`
	AdminID         *uint                    `gorm:"index" json:"admin_id"`
	TransactionType InventoryTransactionType `gorm:"size:20;index;not null" json:"transaction_type"`
	Quantity        int                      `gorm:"not null" json:"quantity"`
	Reference       string                   `gorm:"size:255" json:"reference"`
	StockRequestID  *string                  `gorm:"size:20;index" json:"stock_request_id"`
	SaleID          *string                  `gorm:"size:36;index" json:"sale_id"`
	StockReturnID   *uint                    `gorm:"index" json:"stock_return_id"`
	CreatedByID     uint                     `gorm:"index" json:"created_by_id"`
	CreatedByName   string                   `gorm:"size:100" json:"created_by_name"`
	Notes           string                   `gorm:"size:500" json:"notes"`
	CreatedAt       time.Time                `gorm:"index" json:"created_at"`
}
