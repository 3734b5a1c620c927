package stockrequest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/ledger"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/txlog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockRequest takes the request row lock; it is always the first lock of a
// workflow transaction.
func lockRequest(tx *gorm.DB, id string) (*models.StockRequest, error) {
	var req models.StockRequest
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("stock request %s not found", id)
	}
	if err != nil {
		return nil, apperr.System("lock stock request", err)
	}
	return &req, nil
}

// nextRequestID increments the request counter under its row lock.
func nextRequestID(tx *gorm.DB) (string, error) {
	var seq models.Sequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&seq, "name = ?", models.SequenceStockRequest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = models.Sequence{Name: models.SequenceStockRequest}
		if err := tx.Create(&seq).Error; err != nil {
			return "", apperr.System("create request sequence", err)
		}
	} else if err != nil {
		return "", apperr.System("lock request sequence", err)
	}

	next := seq.Value + 1
	if err := tx.Model(&models.Sequence{}).
		Where("name = ?", models.SequenceStockRequest).
		Update("value", next).Error; err != nil {
		return "", apperr.System("advance request sequence", err)
	}
	return strconv.FormatInt(next, 10), nil
}

func requireAdmin(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("id = ? AND role = ?", id, models.RoleAdmin).Count(&n).Error; err != nil {
		return apperr.System("look up source admin", err)
	}
	if n == 0 {
		return apperr.Validation("requested_from %d is not an admin", id)
	}
	return nil
}

// resolveItems fills catalog-bound items from the product and validates
// free-text ones.
func resolveItems(tx *gorm.DB, in []ItemInput) ([]models.StockRequestItem, int, error) {
	if len(in) == 0 {
		return nil, 0, apperr.Validation("at least one item is required")
	}

	items := make([]models.StockRequestItem, 0, len(in))
	total := 0
	for i, it := range in {
		if err := stock.CheckQuantity(fmt.Sprintf("items[%d]: quantity", i), it.Quantity); err != nil {
			return nil, 0, err
		}
		item := models.StockRequestItem{
			ProductID:   it.ProductID,
			ProductName: strings.TrimSpace(it.ProductName),
			Model:       strings.TrimSpace(it.Model),
			Quantity:    it.Quantity,
		}
		if it.ProductID != nil {
			var p models.Product
			if err := tx.First(&p, *it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, 0, apperr.Validation("items[%d]: product %d not found", i, *it.ProductID)
				}
				return nil, 0, apperr.System("look up product", err)
			}
			item.ProductName = p.Name
			item.Model = p.Model
		} else if item.ProductName == "" {
			return nil, 0, apperr.Validation("items[%d]: product_id or product_name is required", i)
		}
		items = append(items, item)
		total += it.Quantity
	}
	if err := stock.CheckQuantity("total quantity", total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// summarize mirrors the first item onto the request row.
func summarize(req *models.StockRequest, items []models.StockRequestItem) {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	req.TotalQuantity = total
	if len(items) == 0 {
		return
	}
	req.ProductID = items[0].ProductID
	req.ProductName = items[0].ProductName
	req.Model = items[0].Model
}

// resolveSource turns the placeholder into a concrete pool: the dispatching
// admin's own pool, or central when the super-admin resolves it.
func resolveSource(actor stock.Actor, req *models.StockRequest) (stock.Source, error) {
	src, err := stock.SourceOf(req)
	if err != nil {
		return src, err
	}
	switch src.Kind() {
	case stock.SourceCentral, stock.SourceAdmin:
		return src, nil
	case stock.SourceUnassigned:
		if actor.IsSuperAdmin() {
			return stock.Central(), nil
		}
		return stock.FromAdmin(actor.ID), nil
	default:
		return src, apperr.Validation("stock request %s has an unknown source", req.ID)
	}
}

// moveStock locks both pools (lower owner first, central lowest), verifies
// every aggregated line against the source and then moves each line.
func moveStock(tx *gorm.DB, actor stock.Actor, req *models.StockRequest, src stock.Source, items []models.StockRequestItem) error {
	from, ok := src.Pool()
	if !ok {
		return apperr.Validation("stock request %s has no source pool", req.ID)
	}
	to := stock.AdminPool(req.RequestedByID)

	var lines []stock.Line
	var productIDs []uint
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		lines = append(lines, stock.Line{ProductID: *it.ProductID, Quantity: it.Quantity})
		productIDs = append(productIDs, *it.ProductID)
	}
	if len(lines) == 0 {
		return nil
	}

	var sourceBalances map[uint]int
	for _, pool := range lockOrder(from, to) {
		balances, err := ledger.Balances(tx, pool, productIDs)
		if err != nil {
			return err
		}
		if poolKey(pool) == poolKey(from) {
			sourceBalances = balances
		}
	}
	if err := stock.CheckSufficiency(lines, from, sourceBalances); err != nil {
		return err
	}

	reference := "stock request " + req.ID
	requestID := req.ID
	for _, line := range stock.AggregateLines(lines) {
		if _, err := ledger.Debit(tx, from, line.ProductID, line.Quantity); err != nil {
			return err
		}
		if _, err := ledger.Credit(tx, to, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}

	entries := make([]models.InventoryTransaction, 0, 2*len(lines))
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		out := txlog.Movement(models.TxnTransfer, from, *it.ProductID, -it.Quantity, actor, reference)
		out.StockRequestID = &requestID
		out.Notes = fmt.Sprintf("transfer out to %s", to)
		in := txlog.Movement(models.TxnTransfer, to, *it.ProductID, it.Quantity, actor, reference)
		in.StockRequestID = &requestID
		in.Notes = fmt.Sprintf("transfer in from %s", from)
		entries = append(entries, out, in)
	}
	return txlog.Append(tx, entries...)
}

func poolKey(p stock.Pool) uint {
	if p.IsCentral() {
		return 0
	}
	return *p.Owner()
}

func lockOrder(a, b stock.Pool) []stock.Pool {
	if poolKey(a) <= poolKey(b) {
		return []stock.Pool{a, b}
	}
	return []stock.Pool{b, a}
}
