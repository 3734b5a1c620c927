// Package catalog owns the product list and the central stock counter on it.
// Catalog adjustments are the only way central stock changes outside the
// request, sale and return workflows.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/audit"
	"solar-inventory-backend/internal/ledger"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/txlog"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityType = "product"

type ProductInput struct {
	Name      string
	Model     string
	Category  string
	UnitPrice decimal.Decimal
	GSTRate   decimal.Decimal
	// Quantity is the opening central stock, logged as a purchase.
	Quantity int
}

// ProductPatch: nil fields are left unchanged. Stock is not editable here.
type ProductPatch struct {
	Name      *string
	Model     *string
	Category  *string
	UnitPrice *decimal.Decimal
	GSTRate   *decimal.Decimal
}

func ListProducts(ctx context.Context, db *gorm.DB, category, search string) ([]models.Product, error) {
	q := db.WithContext(ctx).Model(&models.Product{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(model) LIKE ?", like, like)
	}
	var out []models.Product
	if err := q.Order("name asc").Order("id asc").Find(&out).Error; err != nil {
		return nil, apperr.System("list products", err)
	}
	return out, nil
}

func GetProduct(ctx context.Context, db *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	err := db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product %d not found", id)
	}
	if err != nil {
		return nil, apperr.System("load product", err)
	}
	return &p, nil
}

func CreateProduct(ctx context.Context, db *gorm.DB, actor stock.Actor, in ProductInput) (*models.Product, error) {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return nil, err
	}
	var p *models.Product
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = createProduct(tx, actor, in)
		return err
	})
	return p, err
}

func createProduct(tx *gorm.DB, actor stock.Actor, in ProductInput) (*models.Product, error) {
	p := models.Product{
		Name:      strings.TrimSpace(in.Name),
		Model:     strings.TrimSpace(in.Model),
		Category:  strings.TrimSpace(in.Category),
		UnitPrice: in.UnitPrice,
		GSTRate:   in.GSTRate,
		Quantity:  in.Quantity,
	}
	if err := checkProduct(tx, &p); err != nil {
		return nil, err
	}
	if p.Quantity < 0 || p.Quantity > stock.MaxQuantity {
		return nil, apperr.Validation("quantity must be between 0 and %d", stock.MaxQuantity)
	}
	if err := tx.Create(&p).Error; err != nil {
		return nil, apperr.System("create product", err)
	}
	if p.Quantity > 0 {
		entry := txlog.Movement(models.TxnPurchase, stock.CentralPool(), p.ID, p.Quantity, actor, "opening stock")
		if err := txlog.Append(tx, entry); err != nil {
			return nil, err
		}
	}
	if err := audit.WriteLog(tx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    fmt.Sprint(p.ID),
		Action:      models.AuditActionCreate,
		Description: "product " + p.Name + " created",
		After:       p,
	}); err != nil {
		return nil, err
	}
	return &p, nil
}

// checkProduct validates a product and that its category exists.
func checkProduct(tx *gorm.DB, p *models.Product) error {
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	if p.UnitPrice.IsNegative() {
		return apperr.Validation("unit_price must not be negative")
	}
	if p.GSTRate.IsNegative() {
		return apperr.Validation("gst_rate must not be negative")
	}
	if p.Category != "" {
		var n int64
		if err := tx.Model(&models.ProductCategory{}).Where("name = ?", p.Category).Count(&n).Error; err != nil {
			return apperr.System("look up category", err)
		}
		if n == 0 {
			return apperr.Validation("category %q does not exist", p.Category)
		}
	}
	return nil
}

func UpdateProduct(ctx context.Context, db *gorm.DB, actor stock.Actor, id uint, patch ProductPatch) (*models.Product, error) {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return nil, err
	}
	var out models.Product
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := ledger.LockProduct(tx, id)
		if err != nil {
			return err
		}
		before := *p
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Model != nil {
			p.Model = strings.TrimSpace(*patch.Model)
		}
		if patch.Category != nil {
			p.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.UnitPrice != nil {
			p.UnitPrice = *patch.UnitPrice
		}
		if patch.GSTRate != nil {
			p.GSTRate = *patch.GSTRate
		}
		if err := checkProduct(tx, p); err != nil {
			return err
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]any{
			"name":       p.Name,
			"model":      p.Model,
			"category":   p.Category,
			"unit_price": p.UnitPrice,
			"gst_rate":   p.GSTRate,
		}).Error; err != nil {
			return apperr.System("update product", err)
		}
		out = *p
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    fmt.Sprint(id),
			Action:      models.AuditActionUpdate,
			Description: "product " + p.Name + " updated",
			Before:      before,
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct refuses products that still hold stock anywhere or have
// stock history.
func DeleteProduct(ctx context.Context, db *gorm.DB, actor stock.Actor, id uint) error {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := ledger.LockProduct(tx, id)
		if err != nil {
			return err
		}
		if p.Quantity > 0 {
			return apperr.Conflict("product %d still has %d units of central stock", id, p.Quantity)
		}
		checks := []struct {
			model any
			what  string
		}{
			{&models.AdminInventory{}, "admin inventory"},
			{&models.InventoryTransaction{}, "inventory transactions"},
			{&models.StockRequestItem{}, "stock requests"},
			{&models.SaleItem{}, "sales"},
			{&models.StockReturn{}, "stock returns"},
		}
		for _, c := range checks {
			var n int64
			if err := tx.Model(c.model).Where("product_id = ?", id).Count(&n).Error; err != nil {
				return apperr.System("check product references", err)
			}
			if n > 0 {
				return apperr.Conflict("product %d is referenced by %s", id, c.what)
			}
		}
		if err := tx.Delete(&models.Product{}, id).Error; err != nil {
			return apperr.System("delete product", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    fmt.Sprint(id),
			Action:      models.AuditActionDelete,
			Description: "product " + p.Name + " deleted",
			Before:      p,
		})
	})
}

// AdjustStock applies a signed change to central stock under the product
// row lock. Positive changes are purchases, the rest adjustments.
func AdjustStock(ctx context.Context, db *gorm.DB, actor stock.Actor, id uint, delta int, notes string) (*models.Product, error) {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, apperr.Validation("quantity must not be 0")
	}
	if delta > stock.MaxQuantity || delta < -stock.MaxQuantity {
		return nil, apperr.Validation("quantity must be between -%d and %d", stock.MaxQuantity, stock.MaxQuantity)
	}
	var out *models.Product
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kind := models.TxnAdjustment
		var err error
		if delta > 0 {
			kind = models.TxnPurchase
			_, err = ledger.Credit(tx, stock.CentralPool(), id, delta)
		} else {
			_, err = ledger.Debit(tx, stock.CentralPool(), id, -delta)
		}
		if err != nil {
			return err
		}
		entry := txlog.Movement(kind, stock.CentralPool(), id, delta, actor, "catalog "+string(kind))
		entry.Notes = strings.TrimSpace(notes)
		if err := txlog.Append(tx, entry); err != nil {
			return err
		}

		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			return apperr.System("reload product", err)
		}
		out = &p
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    fmt.Sprint(id),
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("central stock of %s changed by %+d to %d", p.Name, delta, p.Quantity),
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func ListCategories(ctx context.Context, db *gorm.DB) ([]models.ProductCategory, error) {
	var out []models.ProductCategory
	if err := db.WithContext(ctx).Order("name asc").Find(&out).Error; err != nil {
		return nil, apperr.System("list categories", err)
	}
	return out, nil
}

func CreateCategory(ctx context.Context, db *gorm.DB, actor stock.Actor, name string) (*models.ProductCategory, error) {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	cat := models.ProductCategory{Name: name}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&cat)
		if res.Error != nil {
			return apperr.System("create category", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("category %q already exists", name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}
