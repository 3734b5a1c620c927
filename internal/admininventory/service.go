// Package admininventory is the super-admin's direct view and control of the
// per-owner stock pools. Every change is a catalog adjustment and is logged
// with its signed delta.
package admininventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/audit"
	"solar-inventory-backend/internal/ledger"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/txlog"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const entityType = "admin_inventory"

type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

type ListFilter struct {
	AdminID   uint
	ProductID uint
}

// SetInput sets an owner's absolute quantity of a product. Zero removes the row.
type SetInput struct {
	AdminID   uint
	ProductID uint
	Quantity  int
	Notes     string
}

// Change is the outcome of a direct edit. Row is nil when the pool row was removed.
type Change struct {
	Row   *models.AdminInventory `json:"row"`
	Delta int                    `json:"delta"`
}

func (s *Service) List(ctx context.Context, actor stock.Actor, f ListFilter) ([]models.AdminInventory, error) {
	if !actor.IsSuperAdmin() && actor.Role != models.RoleAccount {
		f.AdminID = actor.ID
	}
	return s.list(ctx, f)
}

func (s *Service) list(ctx context.Context, f ListFilter) ([]models.AdminInventory, error) {
	q := s.db.WithContext(ctx).Model(&models.AdminInventory{}).Preload("Product")
	if f.AdminID != 0 {
		q = q.Where("admin_id = ?", f.AdminID)
	}
	if f.ProductID != 0 {
		q = q.Where("product_id = ?", f.ProductID)
	}

	var rows []models.AdminInventory
	if err := q.Order("admin_id").Order("product_id").Find(&rows).Error; err != nil {
		return nil, apperr.System("list admin inventory", err)
	}
	return rows, nil
}

func (s *Service) Get(ctx context.Context, actor stock.Actor, id uint) (*models.AdminInventory, error) {
	var row models.AdminInventory
	err := s.db.WithContext(ctx).Preload("Product").First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("admin inventory %d not found", id)
	}
	if err != nil {
		return nil, apperr.System("load admin inventory", err)
	}
	if !canView(actor, row.AdminID) {
		return nil, apperr.Authorization("you cannot view this inventory")
	}
	return &row, nil
}

// ForOwner lists one admin's (or agent's) pool.
func (s *Service) ForOwner(ctx context.Context, actor stock.Actor, ownerID uint) ([]models.AdminInventory, error) {
	if !canView(actor, ownerID) {
		return nil, apperr.Authorization("you cannot view this inventory")
	}
	if _, err := loadOwner(s.db.WithContext(ctx), ownerID); err != nil {
		return nil, err
	}
	return s.list(ctx, ListFilter{AdminID: ownerID})
}

func canView(a stock.Actor, ownerID uint) bool {
	return stock.CanViewPool(a, ownerID) || a.Role == models.RoleAccount
}

// checkTarget allows 0, which removes the row.
func checkTarget(qty int) error {
	if qty == 0 {
		return nil
	}
	if qty < 0 {
		return apperr.Validation("quantity must not be negative")
	}
	return stock.CheckQuantity("quantity", qty)
}

// Set is the POST upsert.
func (s *Service) Set(ctx context.Context, actor stock.Actor, in SetInput) (*Change, error) {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return nil, err
	}
	if err := checkTarget(in.Quantity); err != nil {
		return nil, err
	}
	var out *Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := loadOwner(tx, in.AdminID)
		if err != nil {
			return err
		}
		out, err = setQuantity(tx, actor, owner, in.ProductID, in.Quantity, in.Notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update sets the quantity of an existing row.
func (s *Service) Update(ctx context.Context, actor stock.Actor, id uint, quantity int, notes string) (*Change, error) {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return nil, err
	}
	if err := checkTarget(quantity); err != nil {
		return nil, err
	}
	var out *Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findRow(tx, id)
		if err != nil {
			return err
		}
		owner, err := loadOwner(tx, row.AdminID)
		if err != nil {
			return err
		}
		out, err = setQuantity(tx, actor, owner, row.ProductID, quantity, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, actor stock.Actor, id uint) (*Change, error) {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return nil, err
	}
	var out *Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findRow(tx, id)
		if err != nil {
			return err
		}
		owner, err := loadOwner(tx, row.AdminID)
		if err != nil {
			return err
		}
		out, err = setQuantity(tx, actor, owner, row.ProductID, 0, "pool row removed")
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// setQuantity locks the product then the pool row and moves the balance to
// quantity through the ledger, logging the signed delta as an adjustment.
func setQuantity(tx *gorm.DB, actor stock.Actor, owner *models.User, productID uint, quantity int, notes string) (*Change, error) {
	if _, err := ledger.LockProduct(tx, productID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("product %d not found", productID)
		}
		return nil, err
	}
	rows, err := ledger.LockPool(tx, owner.ID, []uint{productID})
	if err != nil {
		return nil, err
	}
	current := 0
	var before *models.AdminInventory
	if row, ok := rows[productID]; ok {
		current = row.Quantity
		before = row
	}

	pool := stock.AdminPool(owner.ID)
	delta := quantity - current
	switch {
	case delta > 0:
		_, err = ledger.Credit(tx, pool, productID, delta)
	case delta < 0:
		_, err = ledger.Debit(tx, pool, productID, -delta)
	}
	if err != nil {
		return nil, err
	}

	out := &Change{Delta: delta}
	if quantity > 0 {
		var row models.AdminInventory
		if err := tx.Preload("Product").Where("admin_id = ? AND product_id = ?", owner.ID, productID).First(&row).Error; err != nil {
			return nil, apperr.System("reload admin inventory", err)
		}
		out.Row = &row
	}
	if delta == 0 {
		return out, nil
	}

	entry := txlog.Movement(models.TxnAdjustment, pool, productID, delta, actor, "admin inventory "+owner.Name)
	entry.Notes = notes
	if err := txlog.Append(tx, entry); err != nil {
		return nil, err
	}

	action := models.AuditActionUpdate
	switch {
	case before == nil:
		action = models.AuditActionCreate
	case quantity == 0:
		action = models.AuditActionDelete
	}
	entityID := fmt.Sprintf("%d:%d", owner.ID, productID)
	if out.Row != nil {
		entityID = strconv.FormatUint(uint64(out.Row.ID), 10)
	} else if before != nil {
		entityID = strconv.FormatUint(uint64(before.ID), 10)
	}
	return out, audit.WriteLog(tx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: fmt.Sprintf("%s holds %d of product %d (%+d)", owner.Name, quantity, productID, delta),
		Before:      before,
		After:       out.Row,
	})
}

func findRow(tx *gorm.DB, id uint) (*models.AdminInventory, error) {
	var row models.AdminInventory
	err := tx.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("admin inventory %d not found", id)
	}
	if err != nil {
		return nil, apperr.System("load admin inventory", err)
	}
	return &row, nil
}

// loadOwner accepts admins and agents, the roles that hold pools.
func loadOwner(db *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	err := db.First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, apperr.System("load user", err)
	}
	if u.Role != models.RoleAdmin && u.Role != models.RoleAgent {
		return nil, apperr.Validation("user %d (%s) does not hold an inventory pool", id, u.Role)
	}
	return &u, nil
}
