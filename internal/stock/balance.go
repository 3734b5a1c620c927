package stock

import (
	"fmt"
	"math"
	"sort"

	"solar-inventory-backend/internal/apperr"
)

// MaxQuantity bounds one movement and the total of one request.
const MaxQuantity = math.MaxInt32

// CheckQuantity rejects a quantity that is not positive or exceeds MaxQuantity.
func CheckQuantity(label string, qty int) error {
	switch {
	case qty <= 0:
		return apperr.Validation("%s must be greater than 0", label)
	case qty > MaxQuantity:
		return apperr.Validation("%s must be at most %d", label, MaxQuantity)
	}
	return nil
}

// Pool identifies a balance: the central Product.quantity or one owner's
// AdminInventory row.
type Pool struct {
	owner *uint
}

func CentralPool() Pool { return Pool{} }

func AdminPool(ownerID uint) Pool {
	id := ownerID
	return Pool{owner: &id}
}

func (p Pool) IsCentral() bool { return p.owner == nil }

// Owner is nil for the central pool; it is what InventoryTransaction.AdminID stores.
func (p Pool) Owner() *uint {
	if p.owner == nil {
		return nil
	}
	id := *p.owner
	return &id
}

func (p Pool) String() string {
	if p.owner == nil {
		return "central"
	}
	return fmt.Sprintf("admin %d", *p.owner)
}

// Balance is a snapshot of one pool's quantity of one product, read under lock.
type Balance struct {
	ProductID uint
	Pool      Pool
	Quantity  int
}

// Debit never clamps: a shortfall is an InsufficientStock error.
func (b Balance) Debit(qty int) (Balance, error) {
	if err := CheckQuantity("quantity", qty); err != nil {
		return b, err
	}
	if b.Quantity < qty {
		return b, apperr.InsufficientStock(apperr.StockShortage{
			ProductID: b.ProductID,
			Pool:      b.Pool.String(),
			Requested: qty,
			Available: b.Quantity,
		})
	}
	b.Quantity -= qty
	return b, nil
}

func (b Balance) Credit(qty int) (Balance, error) {
	if err := CheckQuantity("quantity", qty); err != nil {
		return b, err
	}
	b.Quantity += qty
	return b, nil
}

// Empty admin rows are deleted rather than kept at zero.
func (b Balance) Empty() bool { return b.Quantity == 0 }

// Line is one product movement of a transfer.
type Line struct {
	ProductID uint
	Quantity  int
}

// AggregateLines sums repeated products and orders by product id, which is
// also the row lock order.
func AggregateLines(lines []Line) []Line {
	totals := make(map[uint]int, len(lines))
	for _, l := range lines {
		totals[l.ProductID] += l.Quantity
	}
	out := make([]Line, 0, len(totals))
	for id, qty := range totals {
		out = append(out, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// CheckSufficiency verifies every aggregated line against the locked source
// balances before anything is mutated. A product missing from balances has 0.
func CheckSufficiency(lines []Line, pool Pool, balances map[uint]int) error {
	for _, l := range AggregateLines(lines) {
		b := Balance{ProductID: l.ProductID, Pool: pool, Quantity: balances[l.ProductID]}
		if _, err := b.Debit(l.Quantity); err != nil {
			return err
		}
	}
	return nil
}
