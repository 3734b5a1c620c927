package dashboard

import (
	"context"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"

	"gorm.io/gorm"
)

type OverviewRow struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Model     string `json:"model"`
	Central   int    `json:"central"`
	Pooled    int    `json:"pooled"`
	Total     int    `json:"total"`
	Low       bool   `json:"low"`
}

// Overview lists central and pooled stock per product. For admins and agents
// Pooled is their own pool only.
func Overview(ctx context.Context, db *gorm.DB, actor stock.Actor, lowThreshold int) ([]OverviewRow, error) {
	var products []models.Product
	if err := db.WithContext(ctx).Order("name asc").Order("id asc").Find(&products).Error; err != nil {
		return nil, apperr.System("list products", err)
	}

	type pooled struct {
		ProductID uint
		Quantity  int
	}
	var sums []pooled
	q := db.WithContext(ctx).Model(&models.AdminInventory{}).
		Select("product_id, SUM(quantity) AS quantity").
		Group("product_id")
	if !actor.IsSuperAdmin() && actor.Role != models.RoleAccount {
		q = q.Where("admin_id = ?", actor.ID)
	}
	if err := q.Scan(&sums).Error; err != nil {
		return nil, apperr.System("sum admin inventory", err)
	}
	byProduct := make(map[uint]int, len(sums))
	for _, s := range sums {
		byProduct[s.ProductID] = s.Quantity
	}

	out := make([]OverviewRow, 0, len(products))
	for _, p := range products {
		row := OverviewRow{
			ProductID: p.ID,
			Name:      p.Name,
			Model:     p.Model,
			Central:   p.Quantity,
			Pooled:    byProduct[p.ID],
		}
		row.Total = row.Central + row.Pooled
		if actor.HoldsPool() {
			row.Low = row.Pooled <= lowThreshold
		} else {
			row.Low = row.Central <= lowThreshold
		}
		out = append(out, row)
	}
	return out, nil
}
