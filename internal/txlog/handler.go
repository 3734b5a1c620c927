package txlog

import (
	"strconv"
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewHandler(db *gorm.DB, logger *logrus.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// GET /api/inventory-transactions?product_id=&admin_id=&pool=central&type=&stock_request_id=&sale_id=&from=2024-01-01&to=2024-02-01
func (h *Handler) List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		rows, err := List(h.db.WithContext(c.UserContext()), actor, f)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": rows})
	}
}

// GET /api/inventory-transactions/export with the same filters, as XLSX.
func (h *Handler) Export() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		if f.Limit == 0 {
			f.Limit = 5000
		}
		rows, err := List(h.db.WithContext(c.UserContext()), actor, f)
		if err != nil {
			return err
		}

		book, err := Workbook(rows)
		if err != nil {
			return apperr.System("build workbook", err)
		}
		defer book.Close()
		buf, err := book.WriteToBuffer()
		if err != nil {
			return apperr.System("write workbook", err)
		}

		h.logger.WithFields(logrus.Fields{"user_id": actor.ID, "rows": len(rows)}).Info("inventory transactions exported")

		filename := "inventory-transactions-" + time.Now().Format("20060102-150405") + ".xlsx"
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
		return c.Send(buf.Bytes())
	}
}

func parseFilter(c *fiber.Ctx) (Filter, error) {
	var f Filter

	parseID := func(name string) (uint, error) {
		raw := c.Query(name)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || v == 0 {
			return 0, apperr.Validation("%s must be a positive number", name)
		}
		return uint(v), nil
	}
	parseDate := func(name string) (time.Time, error) {
		raw := c.Query(name)
		if raw == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, apperr.Validation("%s must be YYYY-MM-DD", name)
		}
		return t, nil
	}

	var err error
	if f.ProductID, err = parseID("product_id"); err != nil {
		return f, err
	}
	if f.AdminID, err = parseID("admin_id"); err != nil {
		return f, err
	}
	if f.StockReturnID, err = parseID("stock_return_id"); err != nil {
		return f, err
	}
	if f.From, err = parseDate("from"); err != nil {
		return f, err
	}
	if f.To, err = parseDate("to"); err != nil {
		return f, err
	}
	if !f.To.IsZero() {
		// inclusive end date
		f.To = f.To.AddDate(0, 0, 1)
	}

	f.CentralOnly = c.Query("pool") == "central"
	f.StockRequestID = c.Query("stock_request_id")
	f.SaleID = c.Query("sale_id")
	f.Limit = c.QueryInt("limit", 0)

	if t := c.Query("type"); t != "" {
		switch models.InventoryTransactionType(t) {
		case models.TxnPurchase, models.TxnSale, models.TxnReturn, models.TxnAdjustment, models.TxnTransfer:
			f.Type = models.InventoryTransactionType(t)
		default:
			return f, apperr.Validation("unknown transaction type %q", t)
		}
	}
	return f, nil
}
