package models

import "time"

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestDispatched RequestStatus = "dispatched"
	RequestConfirmed  RequestStatus = "confirmed"
	RequestRejected   RequestStatus = "rejected"
)

// StockRequest: a requester asks a source (central or an admin) for stock.
// ProductID/ProductName/Model mirror the first line item.
type StockRequest struct {
	ID            string `gorm:"primaryKey;size:20" json:"id"`
	ProductID     *uint  `gorm:"index" json:"product_id"`
	ProductName   string `gorm:"size:150" json:"product_name"`
	Model         string `gorm:"size:100" json:"model"`
	TotalQuantity int    `gorm:"not null" json:"total_quantity"`

	RequestedByID   uint     `gorm:"index;not null" json:"requested_by_id"`
	RequestedByName string   `gorm:"size:100" json:"requested_by_name"`
	RequestedByRole UserRole `gorm:"size:20;not null" json:"requested_by_role"`
	// RequesterAdminID is the owning admin of an agent requester.
	RequesterAdminID  *uint    `gorm:"index" json:"requester_admin_id"`
	RequestedFrom     string   `gorm:"size:32;index;not null" json:"requested_from"`
	RequestedFromRole UserRole `gorm:"size:20;not null" json:"requested_from_role"`

	Status          RequestStatus `gorm:"size:20;index;not null;default:pending" json:"status"`
	RejectionReason string        `gorm:"size:500" json:"rejection_reason"`

	DispatchedByID   *uint      `json:"dispatched_by_id"`
	DispatchedByName string     `gorm:"size:100" json:"dispatched_by_name"`
	DispatchedAt     *time.Time `json:"dispatched_at"`
	DispatchImage    string     `gorm:"size:500" json:"dispatch_image"`

	ConfirmedByID   *uint      `json:"confirmed_by_id"`
	ConfirmedByName string     `gorm:"size:100" json:"confirmed_by_name"`
	ConfirmedAt     *time.Time `json:"confirmed_at"`
	ConfirmImage    string     `gorm:"size:500" json:"confirm_image"`

	Notes     string    `gorm:"size:1000" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []StockRequestItem `gorm:"foreignKey:StockRequestID;constraint:OnDelete:CASCADE" json:"items"`
}

// StockRequestItem: ProductID is nil for free-text lines.
type StockRequestItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StockRequestID string    `gorm:"size:20;index;not null" json:"stock_request_id"`
	ProductID      *uint     `gorm:"index" json:"product_id"`
	ProductName    string    `gorm:"size:150;not null" json:"product_name"`
	Model          string    `gorm:"size:100" json:"model"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
}
