// Package ledger reads and mutates the stock pools inside a caller-owned
// transaction. Every mutation locks the row it touches first
// (SELECT ... FOR UPDATE) and applies stock.Balance arithmetic, so a pool can
// never go negative. Callers lock rows in ascending product id order.
package ledger

import (
	"errors"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockProduct locks one catalog row. A missing product is NotFound.
func LockProduct(tx *gorm.DB, productID uint) (*models.Product, error) {
	var p models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product %d not found", productID)
	}
	if err != nil {
		return nil, apperr.System("lock product", err)
	}
	return &p, nil
}

// LockProducts locks the given catalog rows in ascending id order and fails
// with NotFound on the first id that does not exist.
func LockProducts(tx *gorm.DB, productIDs []uint) (map[uint]*models.Product, error) {
	ids := sortedUnique(productIDs)
	out := make(map[uint]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, apperr.System("lock products", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, apperr.NotFound("product %d not found", id)
		}
	}
	return out, nil
}

// LockPool locks one owner's rows for the given products in ascending
// product order. Products the owner does not hold are simply absent.
func LockPool(tx *gorm.DB, ownerID uint, productIDs []uint) (map[uint]*models.AdminInventory, error) {
	ids := sortedUnique(productIDs)
	out := make(map[uint]*models.AdminInventory, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.AdminInventory
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("admin_id = ? AND product_id IN ?", ownerID, ids).
		Order("product_id").
		Find(&rows).Error; err != nil {
		return nil, apperr.System("lock admin inventory", err)
	}
	for i := range rows {
		out[rows[i].ProductID] = &rows[i]
	}
	return out, nil
}

// Balances locks the source rows of a movement and returns product -> quantity.
func Balances(tx *gorm.DB, pool stock.Pool, productIDs []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(productIDs))
	if pool.IsCentral() {
		products, err := LockProducts(tx, productIDs)
		if err != nil {
			return nil, err
		}
		for id, p := range products {
			out[id] = p.Quantity
		}
		return out, nil
	}

	rows, err := LockPool(tx, *pool.Owner(), productIDs)
	if err != nil {
		return nil, err
	}
	for id, r := range rows {
		out[id] = r.Quantity
	}
	return out, nil
}

// Debit removes qty from a pool. An admin row reaching zero is deleted.
func Debit(tx *gorm.DB, pool stock.Pool, productID uint, qty int) (stock.Balance, error) {
	if pool.IsCentral() {
		p, err := LockProduct(tx, productID)
		if err != nil {
			return stock.Balance{}, err
		}
		next, err := stock.Balance{ProductID: productID, Pool: pool, Quantity: p.Quantity}.Debit(qty)
		if err != nil {
			return next, err
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).
			Update("quantity", next.Quantity).Error; err != nil {
			return next, apperr.System("debit central stock", err)
		}
		return next, nil
	}

	owner := *pool.Owner()
	rows, err := LockPool(tx, owner, []uint{productID})
	if err != nil {
		return stock.Balance{}, err
	}
	current := stock.Balance{ProductID: productID, Pool: pool}
	row, held := rows[productID]
	if held {
		current.Quantity = row.Quantity
	}
	next, err := current.Debit(qty)
	if err != nil {
		return next, err
	}

	if next.Empty() {
		err = tx.Delete(&models.AdminInventory{}, row.ID).Error
	} else {
		err = tx.Model(&models.AdminInventory{}).Where("id = ?", row.ID).
			Update("quantity", next.Quantity).Error
	}
	if err != nil {
		return next, apperr.System("debit admin inventory", err)
	}
	return next, nil
}

// Credit adds qty to a pool, creating the admin row when the owner does not
// hold the product yet.
func Credit(tx *gorm.DB, pool stock.Pool, productID uint, qty int) (stock.Balance, error) {
	if pool.IsCentral() {
		p, err := LockProduct(tx, productID)
		if err != nil {
			return stock.Balance{}, err
		}
		next, err := stock.Balance{ProductID: productID, Pool: pool, Quantity: p.Quantity}.Credit(qty)
		if err != nil {
			return next, err
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).
			Update("quantity", next.Quantity).Error; err != nil {
			return next, apperr.System("credit central stock", err)
		}
		return next, nil
	}

	if err := stock.CheckQuantity("quantity", qty); err != nil {
		return stock.Balance{}, err
	}
	owner := *pool.Owner()
	row := models.AdminInventory{AdminID: owner, ProductID: productID, Quantity: qty}
	// one statement so two first credits of the same pair cannot both insert
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "admin_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("admin_inventories.quantity + ?", qty),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&row).Error; err != nil {
		return stock.Balance{}, apperr.System("credit admin inventory", err)
	}

	var held models.AdminInventory
	if err := tx.Where("admin_id = ? AND product_id = ?", owner, productID).First(&held).Error; err != nil {
		return stock.Balance{}, apperr.System("reload admin inventory", err)
	}
	return stock.Balance{ProductID: productID, Pool: pool, Quantity: held.Quantity}, nil
}

// PoolQuantity reads an owner's quantity of one product without locking;
// 0 when no row exists.
func PoolQuantity(db *gorm.DB, ownerID, productID uint) (int, error) {
	var row models.AdminInventory
	err := db.Where("admin_id = ? AND product_id = ?", ownerID, productID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.System("read admin inventory", err)
	}
	return row.Quantity, nil
}

// SystemTotal is central plus every admin pool for one product. Transfers
// never change it.
func SystemTotal(db *gorm.DB, productID uint) (int, error) {
	var p models.Product
	if err := db.Select("quantity").First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("product %d not found", productID)
		}
		return 0, apperr.System("read product", err)
	}
	var pooled int64
	if err := db.Model(&models.AdminInventory{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&pooled).Error; err != nil {
		return 0, apperr.System("sum admin inventory", err)
	}
	return p.Quantity + int(pooled), nil
}
