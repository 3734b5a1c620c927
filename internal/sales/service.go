// Package sales records B2B and B2C sales and consumes the sold stock from
// the seller's pool or from central.
package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/audit"
	"solar-inventory-backend/internal/ledger"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/txlog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityType = "sale"

type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

type AddressInput struct {
	ContactName string
	Phone       string
	Line1       string
	Line2       string
	City        string
	State       string
	PostalCode  string
	Country     string
}

type CreateInput struct {
	Type          models.SaleType
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	GSTNumber     string

	BillingAddressID      *uint
	BillingAddress        *AddressInput
	DeliveryAddressID     *uint
	DeliveryAddress       *AddressInput
	DeliverySameAsBilling bool

	Items          []stock.SaleLineInput
	Subtotal       *decimal.Decimal
	TaxAmount      *decimal.Decimal
	DiscountAmount *decimal.Decimal
	TotalAmount    *decimal.Decimal
	PaymentStatus  models.PaymentStatus
	Notes          string
	SaleDate       *time.Time
}

// UpdateInput touches metadata only; items and amounts are fixed once the
// stock has been consumed.
type UpdateInput struct {
	CustomerName  *string
	CustomerPhone *string
	CustomerEmail *string
	GSTNumber     *string
	PaymentStatus *models.PaymentStatus
	Notes         *string
	SaleDate      *time.Time
}

type ListFilter struct {
	Type          models.SaleType
	PaymentStatus models.PaymentStatus
	From          time.Time
	To            time.Time // exclusive
}

func (s *Service) Create(ctx context.Context, actor stock.Actor, in CreateInput) (*models.Sale, error) {
	if err := stock.AuthorizeCreateSale(actor); err != nil {
		return nil, err
	}
	if err := validateHeader(in); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}

	saleID := uuid.NewString()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var boundIDs []uint
		for _, it := range in.Items {
			if it.ProductID != nil {
				boundIDs = append(boundIDs, *it.ProductID)
			}
		}
		// central rows first, then the seller's pool
		products, err := ledger.LockProducts(tx, boundIDs)
		if err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
				return apperr.Validation("%s", appErr.Message)
			}
			return err
		}
		var pool map[uint]*models.AdminInventory
		if actor.IsAdmin() {
			if pool, err = ledger.LockPool(tx, actor.ID, boundIDs); err != nil {
				return err
			}
		}

		items := make([]models.SaleItem, 0, len(in.Items))
		totalQty := 0
		for i, line := range in.Items {
			var product *models.Product
			if line.ProductID != nil {
				product = products[*line.ProductID]
			}
			item, err := stock.NormalizeSaleLine(i, line, product)
			if err != nil {
				return err
			}
			item.SaleID = saleID
			items = append(items, item)
			totalQty += item.Quantity
		}

		amounts, err := stock.ResolveAmounts(items, in.Subtotal, in.TaxAmount, in.DiscountAmount, in.TotalAmount)
		if err != nil {
			return err
		}
		sources, err := planDeductions(actor, items, products, pool)
		if err != nil {
			return err
		}

		billingID, deliveryID, err := resolveAddresses(tx, in)
		if err != nil {
			return err
		}

		sale := models.Sale{
			ID:                    saleID,
			Type:                  in.Type,
			CustomerName:          strings.TrimSpace(in.CustomerName),
			CustomerPhone:         strings.TrimSpace(in.CustomerPhone),
			CustomerEmail:         strings.TrimSpace(in.CustomerEmail),
			GSTNumber:             strings.TrimSpace(in.GSTNumber),
			BillingAddressID:      billingID,
			DeliveryAddressID:     deliveryID,
			DeliverySameAsBilling: in.DeliverySameAsBilling,
			TotalQuantity:         totalQty,
			Subtotal:              amounts.Subtotal,
			TaxAmount:             amounts.Tax,
			DiscountAmount:        amounts.Discount,
			TotalAmount:           amounts.Total,
			PaymentStatus:         models.PaymentPending,
			CreatedByID:           actor.ID,
			CreatedByName:         actor.Name,
			CreatedByRole:         actor.Role,
			Notes:                 strings.TrimSpace(in.Notes),
			SaleDate:              time.Now(),
		}
		if in.PaymentStatus != "" {
			sale.PaymentStatus = in.PaymentStatus
		}
		if in.SaleDate != nil {
			sale.SaleDate = *in.SaleDate
		}
		if err := tx.Omit(clause.Associations).Create(&sale).Error; err != nil {
			return apperr.System("create sale", err)
		}
		if err := tx.Create(&items).Error; err != nil {
			return apperr.System("create sale items", err)
		}

		entries := make([]models.InventoryTransaction, 0, len(items))
		for i, it := range items {
			if it.ProductID == nil {
				continue
			}
			if _, err := ledger.Debit(tx, sources[i], *it.ProductID, it.Quantity); err != nil {
				return err
			}
			e := txlog.Movement(models.TxnSale, sources[i], *it.ProductID, -it.Quantity, actor, "sale "+saleID)
			e.SaleID = &sale.ID
			entries = append(entries, e)
		}
		if err := txlog.Append(tx, entries...); err != nil {
			return err
		}

		sale.Items = items
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    saleID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s sale to %s, %d units, total %s", sale.Type, sale.CustomerName, totalQty, amounts.Total.StringFixed(2)),
			After:       sale,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"sale_id":    saleID,
		"created_by": actor.ID,
	}).Info("sale recorded")
	return s.load(s.db.WithContext(ctx), saleID)
}

// planDeductions picks one pool per bound line, tracking what earlier lines
// of the same sale already took.
func planDeductions(actor stock.Actor, items []models.SaleItem, products map[uint]*models.Product, pool map[uint]*models.AdminInventory) ([]stock.Pool, error) {
	central := make(map[uint]int, len(products))
	for id, p := range products {
		central[id] = p.Quantity
	}
	held := make(map[uint]int, len(pool))
	for id, row := range pool {
		held[id] = row.Quantity
	}

	sources := make([]stock.Pool, len(items))
	for i, it := range items {
		if it.ProductID == nil {
			continue
		}
		pid := *it.ProductID
		var poolQty *int
		if q, ok := held[pid]; ok && q > 0 {
			poolQty = &q
		}
		src, err := stock.ChooseSaleSource(actor, pid, poolQty, central[pid], it.Quantity)
		if err != nil {
			return nil, err
		}
		if src.IsCentral() {
			central[pid] -= it.Quantity
		} else {
			held[pid] -= it.Quantity
		}
		sources[i] = src
	}
	return sources, nil
}

func validateHeader(in CreateInput) error {
	switch in.Type {
	case models.SaleB2B:
		if strings.TrimSpace(in.GSTNumber) == "" {
			return apperr.Validation("gst_number is required for B2B sales")
		}
	case models.SaleB2C:
	default:
		return apperr.Validation("type must be B2B or B2C")
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return apperr.Validation("customer_name is required")
	}
	switch in.PaymentStatus {
	case "", models.PaymentPending, models.PaymentCompleted:
	default:
		return apperr.Validation("unknown payment_status %q", in.PaymentStatus)
	}
	if in.BillingAddressID != nil && in.BillingAddress != nil {
		return apperr.Validation("give either billing_address_id or billing_address")
	}
	if in.DeliveryAddressID != nil && in.DeliveryAddress != nil {
		return apperr.Validation("give either delivery_address_id or delivery_address")
	}
	return nil
}

// resolveAddresses creates inline addresses and checks referenced ones.
// Delivery aliases billing when DeliverySameAsBilling is set.
func resolveAddresses(tx *gorm.DB, in CreateInput) (*uint, *uint, error) {
	resolve := func(name string, id *uint, inline *AddressInput) (*uint, error) {
		if id != nil {
			var n int64
			if err := tx.Model(&models.Address{}).Where("id = ?", *id).Count(&n).Error; err != nil {
				return nil, apperr.System("look up address", err)
			}
			if n == 0 {
				return nil, apperr.Validation("%s_id %d not found", name, *id)
			}
			return id, nil
		}
		if inline == nil {
			return nil, nil
		}
		if strings.TrimSpace(inline.Line1) == "" {
			return nil, apperr.Validation("%s.line1 is required", name)
		}
		addr := models.Address{
			ContactName: strings.TrimSpace(inline.ContactName),
			Phone:       strings.TrimSpace(inline.Phone),
			Line1:       strings.TrimSpace(inline.Line1),
			Line2:       strings.TrimSpace(inline.Line2),
			City:        strings.TrimSpace(inline.City),
			State:       strings.TrimSpace(inline.State),
			PostalCode:  strings.TrimSpace(inline.PostalCode),
			Country:     strings.TrimSpace(inline.Country),
		}
		if err := tx.Create(&addr).Error; err != nil {
			return nil, apperr.System("create address", err)
		}
		return &addr.ID, nil
	}

	billing, err := resolve("billing_address", in.BillingAddressID, in.BillingAddress)
	if err != nil {
		return nil, nil, err
	}
	if in.DeliverySameAsBilling {
		if billing == nil {
			return nil, nil, apperr.Validation("delivery_same_as_billing needs a billing address")
		}
		return billing, billing, nil
	}
	delivery, err := resolve("delivery_address", in.DeliveryAddressID, in.DeliveryAddress)
	if err != nil {
		return nil, nil, err
	}
	return billing, delivery, nil
}

func (s *Service) Get(ctx context.Context, actor stock.Actor, id string) (*models.Sale, error) {
	sale, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !stock.CanViewSale(actor, sale) {
		return nil, apperr.Authorization("you cannot view sale %s", id)
	}
	return sale, nil
}

func (s *Service) scoped(ctx context.Context, actor stock.Actor, f ListFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Sale{})
	if !actor.IsSuperAdmin() && actor.Role != models.RoleAccount {
		q = q.Where("created_by_id = ?", actor.ID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if !f.From.IsZero() {
		q = q.Where("sale_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("sale_date < ?", f.To)
	}
	return q
}

func (s *Service) List(ctx context.Context, actor stock.Actor, f ListFilter) ([]models.Sale, error) {
	var out []models.Sale
	err := s.scoped(ctx, actor, f).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("BillingAddress").
		Preload("DeliveryAddress").
		Order("sale_date DESC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.System("list sales", err)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, actor stock.Actor, id string, in UpdateInput) (*models.Sale, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, id)
		if err != nil {
			return err
		}
		if err := stock.AuthorizeModifySale(actor, sale); err != nil {
			return err
		}
		before := *sale

		if in.CustomerName != nil {
			name := strings.TrimSpace(*in.CustomerName)
			if name == "" {
				return apperr.Validation("customer_name must not be empty")
			}
			sale.CustomerName = name
		}
		if in.CustomerPhone != nil {
			sale.CustomerPhone = strings.TrimSpace(*in.CustomerPhone)
		}
		if in.CustomerEmail != nil {
			sale.CustomerEmail = strings.TrimSpace(*in.CustomerEmail)
		}
		if in.GSTNumber != nil {
			gst := strings.TrimSpace(*in.GSTNumber)
			if gst == "" && sale.Type == models.SaleB2B {
				return apperr.Validation("gst_number is required for B2B sales")
			}
			sale.GSTNumber = gst
		}
		if in.Notes != nil {
			sale.Notes = strings.TrimSpace(*in.Notes)
		}
		if in.SaleDate != nil {
			sale.SaleDate = *in.SaleDate
		}
		if in.PaymentStatus != nil {
			switch *in.PaymentStatus {
			case models.PaymentPending:
				if sale.BillConfirmed {
					return apperr.Conflict("sale %s has a confirmed bill and stays completed", id)
				}
			case models.PaymentCompleted:
			default:
				return apperr.Validation("unknown payment_status %q", *in.PaymentStatus)
			}
			sale.PaymentStatus = *in.PaymentStatus
		}

		if err := tx.Omit(clause.Associations).Save(sale).Error; err != nil {
			return apperr.System("update sale", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: "sale " + id + " updated",
			Before:      before,
			After:       sale,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

// Delete removes a sale and puts its stock back into the pools it was taken
// from, recorded as adjustments.
func (s *Service) Delete(ctx context.Context, actor stock.Actor, id string) error {
	if err := stock.AuthorizeDeleteSale(actor); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, id)
		if err != nil {
			return err
		}

		var consumed []models.InventoryTransaction
		if err := tx.Where("sale_id = ? AND transaction_type = ?", id, models.TxnSale).
			Find(&consumed).Error; err != nil {
			return apperr.System("load sale transactions", err)
		}
		// central first, then pools by owner, then product
		sort.Slice(consumed, func(i, j int) bool {
			oi, oj := ownerKey(consumed[i].AdminID), ownerKey(consumed[j].AdminID)
			if oi != oj {
				return oi < oj
			}
			return consumed[i].ProductID < consumed[j].ProductID
		})

		entries := make([]models.InventoryTransaction, 0, len(consumed))
		for _, c := range consumed {
			pool := stock.CentralPool()
			if c.AdminID != nil {
				pool = stock.AdminPool(*c.AdminID)
			}
			qty := -c.Quantity
			if _, err := ledger.Credit(tx, pool, c.ProductID, qty); err != nil {
				return err
			}
			e := txlog.Movement(models.TxnAdjustment, pool, c.ProductID, qty, actor, "sale "+id+" deleted")
			e.SaleID = &sale.ID
			entries = append(entries, e)
		}
		if err := txlog.Append(tx, entries...); err != nil {
			return err
		}

		if err := tx.Where("sale_id = ?", id).Delete(&models.SaleItem{}).Error; err != nil {
			return apperr.System("delete sale items", err)
		}
		if err := tx.Delete(&models.Sale{}, "id = ?", id).Error; err != nil {
			return apperr.System("delete sale", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("sale %s deleted, %d stock lines restored", id, len(entries)),
			Before:      sale,
		})
	})
}

// ConfirmBill is the account team's acknowledgement of a B2B invoice.
func (s *Service) ConfirmBill(ctx context.Context, actor stock.Actor, id, image string) (*models.Sale, error) {
	if err := stock.AuthorizeConfirmBill(actor); err != nil {
		return nil, err
	}
	image = strings.TrimSpace(image)
	if image == "" {
		return nil, apperr.Validation("a bill image is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, id)
		if err != nil {
			return err
		}
		if sale.Type != models.SaleB2B {
			return apperr.Conflict("bill confirmation only applies to B2B sales")
		}
		if sale.BillConfirmed {
			return apperr.Conflict("bill for sale %s is already confirmed", id)
		}
		before := *sale

		now := time.Now()
		by := actor.ID
		sale.BillConfirmed = true
		sale.BillImage = image
		sale.BillConfirmedByID = &by
		sale.BillConfirmedAt = &now
		sale.PaymentStatus = models.PaymentCompleted
		if err := tx.Omit(clause.Associations).Save(sale).Error; err != nil {
			return apperr.System("confirm bill", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    id,
			Action:      models.AuditActionConfirm,
			Description: "bill confirmed for sale " + id,
			Before:      before,
			After:       sale,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

func lockSale(tx *gorm.DB, id string) (*models.Sale, error) {
	var sale models.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("sale %s not found", id)
	}
	if err != nil {
		return nil, apperr.System("lock sale", err)
	}
	return &sale, nil
}

func (s *Service) load(db *gorm.DB, id string) (*models.Sale, error) {
	var sale models.Sale
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("BillingAddress").
		Preload("DeliveryAddress").
		First(&sale, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("sale %s not found", id)
	}
	if err != nil {
		return nil, apperr.System("load sale", err)
	}
	return &sale, nil
}

func ownerKey(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
