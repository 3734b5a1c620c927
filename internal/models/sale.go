package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleType string

const (
	SaleB2B SaleType = "B2B"
	SaleB2C SaleType = "B2C"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

type Sale struct {
	ID            string   `gorm:"primaryKey;size:36" json:"id"`
	Type          SaleType `gorm:"size:3;not null;index" json:"type"`
	CustomerName  string   `gorm:"size:150;not null" json:"customer_name"`
	CustomerPhone string   `gorm:"size:30" json:"customer_phone"`
	CustomerEmail string   `gorm:"size:100" json:"customer_email"`
	GSTNumber     string   `gorm:"size:30" json:"gst_number"`

	BillingAddressID      *uint    `json:"billing_address_id"`
	BillingAddress        *Address `json:"billing_address,omitempty"`
	DeliveryAddressID     *uint    `json:"delivery_address_id"`
	DeliveryAddress       *Address `json:"delivery_address,omitempty"`
	DeliverySameAsBilling bool     `gorm:"not null;default:false" json:"delivery_same_as_billing"`

	TotalQuantity  int             `gorm:"not null" json:"total_quantity"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	PaymentStatus  PaymentStatus   `gorm:"size:20;not null;index;default:pending" json:"payment_status"`

	CreatedByID   uint     `gorm:"index;not null" json:"created_by_id"`
	CreatedByName string   `gorm:"size:100" json:"created_by_name"`
	CreatedByRole UserRole `gorm:"size:20" json:"created_by_role"`

	// B2B bill confirmation by the account role
	BillConfirmed     bool       `gorm:"not null;default:false" json:"bill_confirmed"`
	BillImage         string     `gorm:"size:500" json:"bill_image"`
	BillConfirmedByID *uint      `json:"bill_confirmed_by_id"`
	BillConfirmedAt   *time.Time `json:"bill_confirmed_at"`

	Notes     string    `gorm:"size:1000" json:"notes"`
	SaleDate  time.Time `gorm:"index;not null" json:"sale_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
}

type SaleItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleID      string          `gorm:"size:36;index;not null" json:"sale_id"`
	ProductID   *uint           `gorm:"index" json:"product_id"`
	ProductName string          `gorm:"size:150;not null" json:"product_name"`
	Model       string          `gorm:"size:100" json:"model"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
	GSTRate     decimal.Decimal `gorm:"type:decimal(6,2);not null" json:"gst_rate"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Address struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContactName string    `gorm:"size:150" json:"contact_name"`
	Phone       string    `gorm:"size:30" json:"phone"`
	Line1       string    `gorm:"size:255;not null" json:"line1"`
	Line2       string    `gorm:"size:255" json:"line2"`
	City        string    `gorm:"size:100" json:"city"`
	State       string    `gorm:"size:100" json:"state"`
	PostalCode  string    `gorm:"size:20" json:"postal_code"`
	Country     string    `gorm:"size:100" json:"country"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
