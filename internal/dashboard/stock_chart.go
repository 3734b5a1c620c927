// Package dashboard summarizes stock movement for the front page charts.
package dashboard

import (
	"context"
	"sort"
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/txlog"

	"gorm.io/gorm"
)

type ChartPoint struct {
	Label       string `json:"label"` // day, week start or month start
	Purchased   int    `json:"purchased"`
	Sold        int    `json:"sold"`
	Returned    int    `json:"returned"`
	Adjusted    int    `json:"adjusted"` // signed
	Transferred int    `json:"transferred"`
}

type ChartTotals struct {
	Purchased   int `json:"purchased"`
	Sold        int `json:"sold"`
	Returned    int `json:"returned"`
	Adjusted    int `json:"adjusted"`
	Transferred int `json:"transferred"`
}

type StockChart struct {
	Period      string       `json:"period"` // daily | weekly | monthly
	From        string       `json:"from"`
	To          string       `json:"to"`
	ProductID   uint         `json:"product_id,omitempty"`
	Points      []ChartPoint `json:"points"`
	GrandTotals ChartTotals  `json:"grand_totals"`
}

// chartWindow returns the first bucket start and the exclusive end of the
// window ending with the bucket that holds now.
func chartWindow(period string, count int, now time.Time) (string, int, time.Time, time.Time) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch period {
	case "weekly":
		if count <= 0 {
			count = 8
		}
		start := weekStart(today).AddDate(0, 0, -7*(count-1))
		return period, count, start, weekStart(today).AddDate(0, 0, 7)
	case "monthly":
		if count <= 0 {
			count = 12
		}
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return period, count, first.AddDate(0, -(count - 1), 0), first.AddDate(0, 1, 0)
	default:
		if count <= 0 {
			count = 7
		}
		return "daily", count, today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
	}
}

// weekStart is the Monday of t's week.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func bucketOf(period string, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case "weekly":
		return weekStart(day)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

// BuildStockChart buckets the inventory transactions the actor may see.
// Super-admins and the account role see every pool, others their own.
// Transfers are counted once, by their outgoing leg.
func BuildStockChart(ctx context.Context, db *gorm.DB, actor stock.Actor, period string, count int, productID uint, now time.Time) (*StockChart, error) {
	period, count, start, end := chartWindow(period, count, now)
	if count > 366 {
		return nil, apperr.Validation("count must be at most 366")
	}

	q := db.WithContext(ctx).Model(&models.InventoryTransaction{}).
		Select("transaction_type", "quantity", "created_at").
		Where("created_at >= ? AND created_at < ?", start, end)
	if !actor.IsSuperAdmin() && actor.Role != models.RoleAccount {
		q = txlog.OwnedBy(q, actor.ID)
	}
	if productID != 0 {
		q = q.Where("product_id = ?", productID)
	}
	var rows []models.InventoryTransaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.System("load stock movements", err)
	}

	buckets := map[time.Time]*ChartPoint{}
	for _, r := range rows {
		key := bucketOf(period, r.CreatedAt.In(now.Location()))
		p, ok := buckets[key]
		if !ok {
			p = &ChartPoint{Label: key.Format("2006-01-02")}
			buckets[key] = p
		}
		switch r.TransactionType {
		case models.TxnPurchase:
			p.Purchased += r.Quantity
		case models.TxnSale:
			p.Sold -= r.Quantity
		case models.TxnReturn:
			p.Returned += r.Quantity
		case models.TxnAdjustment:
			p.Adjusted += r.Quantity
		case models.TxnTransfer:
			if r.Quantity < 0 {
				p.Transferred -= r.Quantity
			}
		}
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := &StockChart{
		Period:    period,
		From:      start.Format("2006-01-02"),
		To:        end.AddDate(0, 0, -1).Format("2006-01-02"),
		ProductID: productID,
		Points:    make([]ChartPoint, 0, len(keys)),
	}
	for _, k := range keys {
		p := *buckets[k]
		out.Points = append(out.Points, p)
		out.GrandTotals.Purchased += p.Purchased
		out.GrandTotals.Sold += p.Sold
		out.GrandTotals.Returned += p.Returned
		out.GrandTotals.Adjusted += p.Adjusted
		out.GrandTotals.Transferred += p.Transferred
	}
	return out, nil
}
