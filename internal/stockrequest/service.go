// Package stockrequest runs the request / dispatch / confirm workflow that
// moves stock from a source pool into the requester's pool.
package stockrequest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/audit"
	"solar-inventory-backend/internal/lock"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityType = "stock_request"

type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	locker lock.Locker
}

func NewService(db *gorm.DB, logger *logrus.Logger, locker lock.Locker) *Service {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Service{db: db, logger: logger, locker: locker}
}

// ItemInput is one requested line; ProductID nil means a free-text item.
type ItemInput struct {
	ProductID   *uint
	ProductName string
	Model       string
	Quantity    int
}

type CreateInput struct {
	Items         []ItemInput
	RequestedFrom string
	Notes         string
}

// UpdateInput: nil fields are left unchanged.
type UpdateInput struct {
	Items         []ItemInput
	RequestedFrom *string
	Notes         *string
}

// DispatchInput: a non-empty RejectionReason rejects instead of moving stock.
type DispatchInput struct {
	RejectionReason string
	Image           string
}

type ConfirmInput struct {
	Image string
}

type ListFilter struct {
	Status models.RequestStatus
	// View is "mine" (requested by the caller), "incoming" (the caller can
	// dispatch) or empty for both.
	View string
}

func (s *Service) Create(ctx context.Context, actor stock.Actor, in CreateInput) (*models.StockRequest, error) {
	src, err := stock.ParseSource(in.RequestedFrom)
	if err != nil {
		return nil, err
	}
	if err := stock.AuthorizeCreateRequest(actor, src); err != nil {
		return nil, err
	}

	var id string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if src.Kind() == stock.SourceAdmin {
			if err := requireAdmin(tx, src.AdminID()); err != nil {
				return err
			}
		}
		items, total, err := resolveItems(tx, in.Items)
		if err != nil {
			return err
		}

		id, err = nextRequestID(tx)
		if err != nil {
			return err
		}

		req := models.StockRequest{
			ID:                id,
			TotalQuantity:     total,
			RequestedByID:     actor.ID,
			RequestedByName:   actor.Name,
			RequestedByRole:   actor.Role,
			RequestedFrom:     src.String(),
			RequestedFromRole: src.Role(),
			Status:            models.RequestPending,
			Notes:             strings.TrimSpace(in.Notes),
		}
		if actor.IsAgent() {
			req.RequesterAdminID = actor.AdminID
		}
		summarize(&req, items)

		if err := tx.Omit(clause.Associations).Create(&req).Error; err != nil {
			return apperr.System("create stock request", err)
		}
		for i := range items {
			items[i].StockRequestID = id
		}
		if err := tx.Create(&items).Error; err != nil {
			return apperr.System("create stock request items", err)
		}

		req.Items = items
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    id,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("stock request %s for %d units from %s", id, total, src),
			After:       req,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"stock_request_id": id,
		"requested_by":     actor.ID,
		"requested_from":   src.String(),
	}).Info("stock request created")
	return s.load(s.db.WithContext(ctx), id)
}

func (s *Service) Get(ctx context.Context, actor stock.Actor, id string) (*models.StockRequest, error) {
	req, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !stock.CanViewRequest(actor, req) {
		return nil, apperr.Authorization("you cannot view stock request %s", id)
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, actor stock.Actor, f ListFilter) ([]models.StockRequest, error) {
	q := s.db.WithContext(ctx).Model(&models.StockRequest{}).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})

	mine := s.db.Where("requested_by_id = ?", actor.ID)
	switch {
	case actor.IsSuperAdmin():
		if f.View == "mine" {
			q = q.Where(mine)
		}
	case actor.IsAdmin():
		own := strconv.FormatUint(uint64(actor.ID), 10)
		incoming := s.db.Where("requested_by_id <> ?", actor.ID).Where(
			s.db.Where("requested_from = ?", own).
				Or("requested_from = ?", stock.CentralLiteral).
				Or("requested_from = ? AND requested_by_role = ? AND (requester_admin_id IS NULL OR requester_admin_id = ?)",
					stock.UnassignedLiteral, models.RoleAgent, actor.ID).
				Or("requester_admin_id = ?", actor.ID).
				Or("dispatched_by_id = ?", actor.ID),
		)
		switch f.View {
		case "mine":
			q = q.Where(mine)
		case "incoming":
			q = q.Where(incoming)
		default:
			q = q.Where(s.db.Where(mine).Or(incoming))
		}
	case actor.IsAgent():
		q = q.Where(mine)
	default:
		return nil, apperr.Authorization("role %s cannot read stock requests", actor.Role)
	}

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var out []models.StockRequest
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, apperr.System("list stock requests", err)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, actor stock.Actor, id string, in UpdateInput) (*models.StockRequest, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := lockRequest(tx, id)
		if err != nil {
			return err
		}
		if err := stock.AuthorizeModifyRequest(actor, req); err != nil {
			return err
		}
		if err := stock.RequirePending(req.Status); err != nil {
			return err
		}
		before := *req

		if in.RequestedFrom != nil {
			src, err := stock.ParseSource(*in.RequestedFrom)
			if err != nil {
				return err
			}
			if err := stock.AuthorizeCreateRequest(actor, src); err != nil {
				return err
			}
			if src.Kind() == stock.SourceAdmin {
				if err := requireAdmin(tx, src.AdminID()); err != nil {
					return err
				}
			}
			req.RequestedFrom = src.String()
			req.RequestedFromRole = src.Role()
		}
		if in.Notes != nil {
			req.Notes = strings.TrimSpace(*in.Notes)
		}

		if in.Items != nil {
			items, total, err := resolveItems(tx, in.Items)
			if err != nil {
				return err
			}
			if err := tx.Where("stock_request_id = ?", id).Delete(&models.StockRequestItem{}).Error; err != nil {
				return apperr.System("replace stock request items", err)
			}
			for i := range items {
				items[i].StockRequestID = id
			}
			if err := tx.Create(&items).Error; err != nil {
				return apperr.System("replace stock request items", err)
			}
			req.TotalQuantity = total
			summarize(req, items)
		}

		if err := tx.Omit(clause.Associations).Save(req).Error; err != nil {
			return apperr.System("update stock request", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: "stock request " + id + " updated",
			Before:      before,
			After:       req,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

func (s *Service) Delete(ctx context.Context, actor stock.Actor, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := lockRequest(tx, id)
		if err != nil {
			return err
		}
		if err := stock.AuthorizeDeleteRequest(actor, req); err != nil {
			return err
		}
		if err := stock.RequirePending(req.Status); err != nil {
			return err
		}

		if err := tx.Where("stock_request_id = ?", id).Delete(&models.StockRequestItem{}).Error; err != nil {
			return apperr.System("delete stock request items", err)
		}
		if err := tx.Delete(&models.StockRequest{}, "id = ?", id).Error; err != nil {
			return apperr.System("delete stock request", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: "stock request " + id + " deleted",
			Before:      req,
		})
	})
}

// Dispatch rejects the request or moves every product-bound item from the
// source pool to the requester's pool. Nothing moves unless every line is
// covered.
func (s *Service) Dispatch(ctx context.Context, actor stock.Actor, id string, in DispatchInput) (*models.StockRequest, error) {
	release, err := s.locker.Acquire(ctx, entityType+":"+id, lock.DefaultTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	reason := strings.TrimSpace(in.RejectionReason)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := lockRequest(tx, id)
		if err != nil {
			return err
		}
		var items []models.StockRequestItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("stock_request_id = ?", id).Order("id").
			Find(&items).Error; err != nil {
			return apperr.System("lock stock request items", err)
		}

		if err := stock.AuthorizeDispatch(actor, req); err != nil {
			return err
		}
		before := *req
		now := time.Now()

		if reason != "" {
			if err := stock.Transition(req.Status, models.RequestRejected); err != nil {
				return err
			}
			req.Status = models.RequestRejected
			req.RejectionReason = reason
			if err := tx.Omit(clause.Associations).Save(req).Error; err != nil {
				return apperr.System("reject stock request", err)
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  entityType,
				EntityID:    id,
				Action:      models.AuditActionReject,
				Description: "stock request " + id + " rejected: " + reason,
				Before:      before,
				After:       req,
			})
		}

		if err := stock.Transition(req.Status, models.RequestDispatched); err != nil {
			return err
		}

		src, err := resolveSource(actor, req)
		if err != nil {
			return err
		}
		if err := moveStock(tx, actor, req, src, items); err != nil {
			return err
		}

		dispatcher := actor.ID
		req.RequestedFrom = src.String()
		req.RequestedFromRole = src.Role()
		req.Status = models.RequestDispatched
		req.RejectionReason = ""
		req.DispatchedByID = &dispatcher
		req.DispatchedByName = actor.Name
		req.DispatchedAt = &now
		req.DispatchImage = strings.TrimSpace(in.Image)
		if err := tx.Omit(clause.Associations).Save(req).Error; err != nil {
			return apperr.System("dispatch stock request", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    id,
			Action:      models.AuditActionDispatch,
			Description: fmt.Sprintf("stock request %s dispatched from %s", id, src),
			Before:      before,
			After:       req,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"stock_request_id": id,
		"dispatched_by":    actor.ID,
		"rejected":         reason != "",
	}).Info("stock request dispatched")
	return s.load(s.db.WithContext(ctx), id)
}

// Confirm acknowledges receipt. Stock already moved at dispatch.
func (s *Service) Confirm(ctx context.Context, actor stock.Actor, id string, in ConfirmInput) (*models.StockRequest, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := lockRequest(tx, id)
		if err != nil {
			return err
		}
		if err := stock.AuthorizeConfirm(actor, req); err != nil {
			return err
		}
		if err := stock.Transition(req.Status, models.RequestConfirmed); err != nil {
			return err
		}
		before := *req

		now := time.Now()
		confirmer := actor.ID
		req.Status = models.RequestConfirmed
		req.ConfirmedByID = &confirmer
		req.ConfirmedByName = actor.Name
		req.ConfirmedAt = &now
		req.ConfirmImage = strings.TrimSpace(in.Image)
		if err := tx.Omit(clause.Associations).Save(req).Error; err != nil {
			return apperr.System("confirm stock request", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    id,
			Action:      models.AuditActionConfirm,
			Description: "stock request " + id + " confirmed",
			Before:      before,
			After:       req,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

func (s *Service) load(db *gorm.DB, id string) (*models.StockRequest, error) {
	var req models.StockRequest
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("stock request %s not found", id)
	}
	if err != nil {
		return nil, apperr.System("load stock request", err)
	}
	return &req, nil
}
