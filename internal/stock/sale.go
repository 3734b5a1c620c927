package stock

import (
	"fmt"
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ChooseSaleSource picks the single pool one sale line is deducted from.
// An admin's own pool wins when it alone covers the line; otherwise the
// whole line falls back to central. Lines are never split across pools.
// poolQty is nil when the admin has no row for the product.
func ChooseSaleSource(a Actor, productID uint, poolQty *int, centralQty int, qty int) (Pool, error) {
	if err := CheckQuantity("quantity", qty); err != nil {
		return Pool{}, err
	}
	if a.IsAdmin() && poolQty != nil && *poolQty >= qty {
		return AdminPool(a.ID), nil
	}
	if centralQty >= qty {
		return CentralPool(), nil
	}

	shortage := apperr.StockShortage{
		ProductID: productID,
		Pool:      CentralPool().String(),
		Requested: qty,
		Available: centralQty,
	}
	return Pool{}, apperr.InsufficientStock(shortage)
}

// SaleLineInput is one requested sale line; nil fields are filled from the catalog.
type SaleLineInput struct {
	ProductID   *uint
	ProductName string
	Model       string
	Quantity    int
	UnitPrice   *decimal.Decimal
	LineTotal   *decimal.Decimal
	GSTRate     *decimal.Decimal
}

// NormalizeSaleLine resolves a line against its catalog product (nil for
// free-text lines) and validates quantities and money.
func NormalizeSaleLine(idx int, in SaleLineInput, product *models.Product) (models.SaleItem, error) {
	item := models.SaleItem{
		ProductID:   in.ProductID,
		ProductName: strings.TrimSpace(in.ProductName),
		Model:       strings.TrimSpace(in.Model),
		Quantity:    in.Quantity,
	}
	if err := CheckQuantity(fmt.Sprintf("items[%d]: quantity", idx), item.Quantity); err != nil {
		return item, err
	}

	if product != nil {
		if item.ProductName == "" {
			item.ProductName = product.Name
		}
		if item.Model == "" {
			item.Model = product.Model
		}
	}
	if item.ProductName == "" {
		return item, apperr.Validation("items[%d]: product_name is required for lines without a product", idx)
	}

	switch {
	case in.UnitPrice != nil:
		item.UnitPrice = *in.UnitPrice
	case product != nil:
		item.UnitPrice = product.UnitPrice
	default:
		return item, apperr.Validation("items[%d]: unit_price is required for lines without a product", idx)
	}
	if item.UnitPrice.IsNegative() {
		return item, apperr.Validation("items[%d]: unit_price must not be negative", idx)
	}

	switch {
	case in.GSTRate != nil:
		item.GSTRate = *in.GSTRate
	case product != nil:
		item.GSTRate = product.GSTRate
	default:
		item.GSTRate = decimal.Zero
	}
	if item.GSTRate.IsNegative() {
		return item, apperr.Validation("items[%d]: gst_rate must not be negative", idx)
	}

	computed := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
	if in.LineTotal != nil {
		if in.LineTotal.IsNegative() {
			return item, apperr.Validation("items[%d]: line_total must not be negative", idx)
		}
		if !in.LineTotal.Round(2).Equal(computed) {
			return item, apperr.Validation("items[%d]: line_total %s does not match quantity x unit_price %s", idx, in.LineTotal.String(), computed.String())
		}
	}
	item.LineTotal = computed
	return item, nil
}

// Amounts are the aggregate money fields of a sale.
type Amounts struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ResolveAmounts fills omitted aggregates (subtotal defaults to the sum of
// line totals, tax and discount to 0, total to subtotal + tax - discount) and
// checks the provided ones.
func ResolveAmounts(items []models.SaleItem, subtotal, tax, discount, total *decimal.Decimal) (Amounts, error) {
	var a Amounts
	if subtotal != nil {
		a.Subtotal = *subtotal
	} else {
		a.Subtotal = decimal.Zero
		for _, it := range items {
			a.Subtotal = a.Subtotal.Add(it.LineTotal)
		}
	}
	if tax != nil {
		a.Tax = *tax
	}
	if discount != nil {
		a.Discount = *discount
	}
	expected := a.Subtotal.Add(a.Tax).Sub(a.Discount)
	if total != nil {
		a.Total = *total
	} else {
		a.Total = expected
	}

	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal", a.Subtotal},
		{"tax_amount", a.Tax},
		{"discount_amount", a.Discount},
		{"total_amount", a.Total},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return a, apperr.Validation("%s must not be negative", f.name)
		}
	}
	if !a.Total.Round(2).Equal(expected.Round(2)) {
		return a, apperr.Validation("total_amount %s must equal subtotal + tax - discount (%s)", a.Total.String(), expected.String())
	}
	return a, nil
}
