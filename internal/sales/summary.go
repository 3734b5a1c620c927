package sales

import (
	"context"
	"sort"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"

	"github.com/shopspring/decimal"
)

type SummaryRow struct {
	Type          models.SaleType      `json:"type"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Sales         int                  `json:"sales"`
	Quantity      int                  `json:"quantity"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	TaxAmount     decimal.Decimal      `json:"tax_amount"`
	Discount      decimal.Decimal      `json:"discount_amount"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
}

type Summary struct {
	Sales       int             `json:"sales"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Pending     decimal.Decimal `json:"pending_amount"`
	Groups      []SummaryRow    `json:"groups"`
}

// Summary totals the caller's visible sales by type and payment status.
// Money is summed in decimal.
func (s *Service) Summary(ctx context.Context, actor stock.Actor, f ListFilter) (*Summary, error) {
	var rows []models.Sale
	if err := s.scoped(ctx, actor, f).
		Select("type", "payment_status", "total_quantity", "subtotal", "tax_amount", "discount_amount", "total_amount").
		Find(&rows).Error; err != nil {
		return nil, apperr.System("summarize sales", err)
	}

	type key struct {
		t models.SaleType
		p models.PaymentStatus
	}
	groups := map[key]*SummaryRow{}
	out := &Summary{TotalAmount: decimal.Zero, Pending: decimal.Zero}
	for _, r := range rows {
		k := key{r.Type, r.PaymentStatus}
		g, ok := groups[k]
		if !ok {
			g = &SummaryRow{
				Type:          r.Type,
				PaymentStatus: r.PaymentStatus,
				Subtotal:      decimal.Zero,
				TaxAmount:     decimal.Zero,
				Discount:      decimal.Zero,
				TotalAmount:   decimal.Zero,
			}
			groups[k] = g
		}
		g.Sales++
		g.Quantity += r.TotalQuantity
		g.Subtotal = g.Subtotal.Add(r.Subtotal)
		g.TaxAmount = g.TaxAmount.Add(r.TaxAmount)
		g.Discount = g.Discount.Add(r.DiscountAmount)
		g.TotalAmount = g.TotalAmount.Add(r.TotalAmount)

		out.Sales++
		out.Quantity += r.TotalQuantity
		out.TotalAmount = out.TotalAmount.Add(r.TotalAmount)
		if r.PaymentStatus == models.PaymentPending {
			out.Pending = out.Pending.Add(r.TotalAmount)
		}
	}

	out.Groups = make([]SummaryRow, 0, len(groups))
	for _, g := range groups {
		out.Groups = append(out.Groups, *g)
	}
	sort.Slice(out.Groups, func(i, j int) bool {
		if out.Groups[i].Type != out.Groups[j].Type {
			return out.Groups[i].Type < out.Groups[j].Type
		}
		return out.Groups[i].PaymentStatus < out.Groups[j].PaymentStatus
	})
	return out, nil
}
