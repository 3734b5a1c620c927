// Package stockreturn sends an admin's excess stock back to the central pool.
// A return is recorded as pending and only moves stock when a super-admin
// processes it.
package stockreturn

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/audit"
	"solar-inventory-backend/internal/ledger"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/txlog"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityType = "stock_return"

type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

type CreateInput struct {
	ProductID uint
	Quantity  int
	Reason    string
}

// UpdateInput: nil fields are left unchanged.
type UpdateInput struct {
	Quantity *int
	Reason   *string
}

type ListFilter struct {
	Status    models.ReturnStatus
	AdminID   uint
	ProductID uint
}

func (s *Service) Create(ctx context.Context, actor stock.Actor, in CreateInput) (*models.StockReturn, error) {
	if err := stock.AuthorizeCreateReturn(actor); err != nil {
		return nil, err
	}
	if in.ProductID == 0 {
		return nil, apperr.Validation("product_id is required")
	}
	if err := stock.CheckQuantity("quantity", in.Quantity); err != nil {
		return nil, err
	}

	ret := models.StockReturn{
		AdminID:   actor.ID,
		AdminName: actor.Name,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Status:    models.ReturnPending,
		Reason:    strings.TrimSpace(in.Reason),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkHeld(tx, actor.ID, in.ProductID, in.Quantity); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&ret).Error; err != nil {
			return apperr.System("create stock return", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    strconv.FormatUint(uint64(ret.ID), 10),
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("return of %d x product %d requested", ret.Quantity, ret.ProductID),
			After:       ret,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), ret.ID)
}

// checkHeld verifies the admin's pool covers qty. Nothing moves until
// Process, which checks again under lock.
func checkHeld(tx *gorm.DB, adminID, productID uint, qty int) error {
	if _, err := ledger.LockProduct(tx, productID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("product %d not found", productID)
		}
		return err
	}
	held, err := ledger.PoolQuantity(tx, adminID, productID)
	if err != nil {
		return err
	}
	if held < qty {
		return apperr.InsufficientStock(apperr.StockShortage{
			ProductID: productID,
			Pool:      stock.AdminPool(adminID).String(),
			Requested: qty,
			Available: held,
		})
	}
	return nil
}

func (s *Service) Get(ctx context.Context, actor stock.Actor, id uint) (*models.StockReturn, error) {
	ret, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !stock.CanViewReturn(actor, ret) {
		return nil, apperr.Authorization("you cannot view stock return %d", id)
	}
	return ret, nil
}

// List shows super-admins every return and admins their own.
func (s *Service) List(ctx context.Context, actor stock.Actor, f ListFilter) ([]models.StockReturn, error) {
	q := s.db.WithContext(ctx).Model(&models.StockReturn{}).Preload("Product")
	switch {
	case actor.IsSuperAdmin():
		if f.AdminID != 0 {
			q = q.Where("admin_id = ?", f.AdminID)
		}
	case actor.IsAdmin():
		q = q.Where("admin_id = ?", actor.ID)
	default:
		return nil, apperr.Authorization("only admins can view stock returns")
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ProductID != 0 {
		q = q.Where("product_id = ?", f.ProductID)
	}

	var out []models.StockReturn
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, apperr.System("list stock returns", err)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, actor stock.Actor, id uint, in UpdateInput) (*models.StockReturn, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ret, err := lockReturn(tx, id)
		if err != nil {
			return err
		}
		if err := stock.AuthorizeModifyReturn(actor, ret); err != nil {
			return err
		}
		if err := stock.RequireReturnPending(ret.Status); err != nil {
			return err
		}
		before := *ret

		if in.Quantity != nil {
			if err := stock.CheckQuantity("quantity", *in.Quantity); err != nil {
				return err
			}
			if err := checkHeld(tx, ret.AdminID, ret.ProductID, *in.Quantity); err != nil {
				return err
			}
			ret.Quantity = *in.Quantity
		}
		if in.Reason != nil {
			ret.Reason = strings.TrimSpace(*in.Reason)
		}
		if err := tx.Omit(clause.Associations).Save(ret).Error; err != nil {
			return apperr.System("update stock return", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    strconv.FormatUint(uint64(id), 10),
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("stock return %d updated", id),
			Before:      before,
			After:       ret,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

func (s *Service) Delete(ctx context.Context, actor stock.Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ret, err := lockReturn(tx, id)
		if err != nil {
			return err
		}
		if err := stock.AuthorizeDeleteReturn(actor, ret); err != nil {
			return err
		}
		if err := stock.RequireReturnPending(ret.Status); err != nil {
			return err
		}
		if err := tx.Delete(&models.StockReturn{}, id).Error; err != nil {
			return apperr.System("delete stock return", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    strconv.FormatUint(uint64(id), 10),
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("stock return %d deleted", id),
			Before:      ret,
		})
	})
}

// Process moves the returned quantity from the admin's pool into central
// stock. The pool balance is re-read under lock; a shortfall aborts with no
// mutation.
func (s *Service) Process(ctx context.Context, actor stock.Actor, id uint) (*models.StockReturn, error) {
	if err := stock.AuthorizeProcessReturn(actor); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ret, err := lockReturn(tx, id)
		if err != nil {
			return err
		}
		if err := stock.RequireReturnPending(ret.Status); err != nil {
			return err
		}
		before := *ret

		// central first, then the admin pool
		if _, err := ledger.LockProduct(tx, ret.ProductID); err != nil {
			return err
		}
		pool := stock.AdminPool(ret.AdminID)
		if _, err := ledger.Debit(tx, pool, ret.ProductID, ret.Quantity); err != nil {
			return err
		}
		if _, err := ledger.Credit(tx, stock.CentralPool(), ret.ProductID, ret.Quantity); err != nil {
			return err
		}

		entry := txlog.Movement(models.TxnReturn, stock.CentralPool(), ret.ProductID, ret.Quantity, actor,
			fmt.Sprintf("return %d from %s", ret.ID, ret.AdminName))
		entry.StockReturnID = &ret.ID
		entry.Notes = ret.Reason
		if err := txlog.Append(tx, entry); err != nil {
			return err
		}

		now := time.Now()
		by := actor.ID
		ret.Status = models.ReturnCompleted
		ret.ProcessedByID = &by
		ret.ProcessedByName = actor.Name
		ret.ProcessedAt = &now
		if err := tx.Omit(clause.Associations).Save(ret).Error; err != nil {
			return apperr.System("complete stock return", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    strconv.FormatUint(uint64(id), 10),
			Action:      models.AuditActionProcess,
			Description: fmt.Sprintf("%d x product %d returned to central by %s", ret.Quantity, ret.ProductID, ret.AdminName),
			Before:      before,
			After:       ret,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"stock_return_id": id,
		"processed_by":    actor.ID,
	}).Info("stock return processed")
	return s.load(s.db.WithContext(ctx), id)
}

func lockReturn(tx *gorm.DB, id uint) (*models.StockReturn, error) {
	var ret models.StockReturn
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ret, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("stock return %d not found", id)
	}
	if err != nil {
		return nil, apperr.System("lock stock return", err)
	}
	return &ret, nil
}

func (s *Service) load(db *gorm.DB, id uint) (*models.StockReturn, error) {
	var ret models.StockReturn
	err := db.Preload("Product").First(&ret, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("stock return %d not found", id)
	}
	if err != nil {
		return nil, apperr.System("load stock return", err)
	}
	return &ret, nil
}
