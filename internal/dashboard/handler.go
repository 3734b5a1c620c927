package dashboard

import (
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/database"

	"github.com/gofiber/fiber/v2"
)

const defaultLowStock = 5

// GET /api/dashboard/stock-chart?period=daily&count=7&product_id=3
func StockChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		period := c.Query("period", "daily")
		switch period {
		case "daily", "weekly", "monthly":
		default:
			return apperr.Validation("period must be daily, weekly or monthly")
		}
		count := c.QueryInt("count", 0)
		if count < 0 {
			return apperr.Validation("count must be positive")
		}
		productID := c.QueryInt("product_id", 0)
		if productID < 0 {
			return apperr.Validation("invalid product_id")
		}

		chart, err := BuildStockChart(c.UserContext(), database.DB, actor, period, count, uint(productID), time.Now())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": chart})
	}
}

// GET /api/dashboard/stock-overview?low=5
func StockOverviewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		rows, err := Overview(c.UserContext(), database.DB, actor, c.QueryInt("low", defaultLowStock))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": rows})
	}
}
