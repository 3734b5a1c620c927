// Package txlog is the append-only inventory transaction history. Rows are
// written inside the transaction that moved the stock and are never updated,
// deleted or read back to compute balances.
package txlog

import (
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"

	"gorm.io/gorm"
)

// Append writes entries in order on tx.
func Append(tx *gorm.DB, entries ...models.InventoryTransaction) error {
	for i := range entries {
		e := &entries[i]
		if e.ID != 0 {
			return apperr.System("append inventory transaction", errAlreadyWritten)
		}
		if e.Quantity == 0 {
			return apperr.System("append inventory transaction", errZeroQuantity)
		}
		if e.TransactionType == "" {
			return apperr.System("append inventory transaction", errMissingType)
		}
	}
	if len(entries) == 0 {
		return nil
	}
	if err := tx.Create(&entries).Error; err != nil {
		return apperr.System("append inventory transaction", err)
	}
	return nil
}

// Movement builds one signed entry against pool.
func Movement(kind models.InventoryTransactionType, pool stock.Pool, productID uint, qty int, by stock.Actor, reference string) models.InventoryTransaction {
	return models.InventoryTransaction{
		ProductID:       productID,
		AdminID:         pool.Owner(),
		TransactionType: kind,
		Quantity:        qty,
		Reference:       reference,
		CreatedByID:     by.ID,
		CreatedByName:   by.Name,
	}
}

// OwnedBy scopes q to ownerID's pool. Processed returns are logged once on
// the central pool, so rows of the owner's own returns are included too.
func OwnedBy(q *gorm.DB, ownerID uint) *gorm.DB {
	return q.Where("(admin_id = ? OR stock_return_id IN (SELECT id FROM stock_returns WHERE admin_id = ?))", ownerID, ownerID)
}

// Filter narrows the read side. Zero values mean no constraint.
type Filter struct {
	ProductID      uint
	AdminID        uint
	CentralOnly    bool
	Type           models.InventoryTransactionType
	StockRequestID string
	SaleID         string
	StockReturnID  uint
	From           time.Time
	To             time.Time // exclusive
	Limit          int
}

// List applies the caller's visibility: super-admin and account see every
// pool, admins and agents only their own.
func List(db *gorm.DB, actor stock.Actor, f Filter) ([]models.InventoryTransaction, error) {
	q := db.Model(&models.InventoryTransaction{})

	switch {
	case actor.IsSuperAdmin(), actor.Role == models.RoleAccount:
		if f.CentralOnly {
			q = q.Where("admin_id IS NULL")
		} else if f.AdminID != 0 {
			q = OwnedBy(q, f.AdminID)
		}
	case actor.HoldsPool():
		if f.CentralOnly || (f.AdminID != 0 && f.AdminID != actor.ID) {
			return nil, apperr.Authorization("you can only read your own inventory history")
		}
		q = OwnedBy(q, actor.ID)
	default:
		return nil, apperr.Authorization("role %s cannot read inventory history", actor.Role)
	}

	if f.ProductID != 0 {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.Type != "" {
		q = q.Where("transaction_type = ?", f.Type)
	}
	if f.StockRequestID != "" {
		q = q.Where("stock_request_id = ?", f.StockRequestID)
	}
	if f.SaleID != "" {
		q = q.Where("sale_id = ?", f.SaleID)
	}
	if f.StockReturnID != 0 {
		q = q.Where("stock_return_id = ?", f.StockReturnID)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}

	limit := f.Limit
	if limit <= 0 || limit > 5000 {
		limit = 500
	}

	var rows []models.InventoryTransaction
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, apperr.System("list inventory transactions", err)
	}
	return rows, nil
}
