package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/audit"
	"solar-inventory-backend/internal/ledger"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/txlog"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Import sheet columns, after one header row:
// name | model | category | unit_price | gst_rate | quantity
const importColumns = 6

type ImportResult struct {
	Created   int `json:"created"`
	Restocked int `json:"restocked"`
	Units     int `json:"units"`
}

type importRow struct {
	line  int
	input ProductInput
}

// ImportProducts reads the first sheet of an XLSX workbook. Unknown
// (name, model) pairs become products with opening stock; known ones are
// restocked by the row quantity. Any bad row rejects the whole file.
func ImportProducts(ctx context.Context, db *gorm.DB, actor stock.Actor, r io.Reader) (*ImportResult, error) {
	if err := stock.AuthorizeManageInventory(actor); err != nil {
		return nil, err
	}
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("cannot read workbook: %v", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("workbook has no sheets")
	}
	cells, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("cannot read sheet %q: %v", sheets[0], err)
	}

	rows, problems := parseImportRows(cells)
	if len(problems) > 0 {
		return nil, apperr.Validation("workbook has invalid rows").WithDetails(problems)
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("workbook has no product rows")
	}

	res := &ImportResult{}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			var existing models.Product
			q := tx.Where("LOWER(name) = ? AND LOWER(model) = ?",
				strings.ToLower(row.input.Name), strings.ToLower(row.input.Model)).Limit(1).Find(&existing)
			if q.Error != nil {
				return apperr.System("look up product", q.Error)
			}
			if q.RowsAffected == 0 {
				if _, err := createProduct(tx, actor, row.input); err != nil {
					return lineError(row.line, err)
				}
				res.Created++
				res.Units += row.input.Quantity
				continue
			}
			if row.input.Quantity == 0 {
				continue
			}
			if _, err := ledger.Credit(tx, stock.CentralPool(), existing.ID, row.input.Quantity); err != nil {
				return lineError(row.line, err)
			}
			entry := txlog.Movement(models.TxnPurchase, stock.CentralPool(), existing.ID, row.input.Quantity, actor, "xlsx import")
			if err := txlog.Append(tx, entry); err != nil {
				return err
			}
			res.Restocked++
			res.Units += row.input.Quantity
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityType,
			EntityID:    "import",
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("xlsx import: %d created, %d restocked, %d units", res.Created, res.Restocked, res.Units),
			After:       res,
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func parseImportRows(cells [][]string) ([]importRow, map[string]string) {
	var rows []importRow
	problems := map[string]string{}
	for i, raw := range cells {
		if i == 0 {
			continue
		}
		line := i + 1
		cols := make([]string, importColumns)
		for j := 0; j < importColumns && j < len(raw); j++ {
			cols[j] = strings.TrimSpace(raw[j])
		}
		if strings.Join(cols, "") == "" {
			continue
		}

		in := ProductInput{Name: cols[0], Model: cols[1], Category: cols[2], UnitPrice: decimal.Zero, GSTRate: decimal.Zero}
		key := "row " + strconv.Itoa(line)
		if in.Name == "" {
			problems[key] = "name is required"
			continue
		}
		var err error
		if cols[3] != "" {
			if in.UnitPrice, err = decimal.NewFromString(cols[3]); err != nil {
				problems[key] = "unit_price is not a number"
				continue
			}
		}
		if cols[4] != "" {
			if in.GSTRate, err = decimal.NewFromString(cols[4]); err != nil {
				problems[key] = "gst_rate is not a number"
				continue
			}
		}
		if cols[5] != "" {
			if in.Quantity, err = strconv.Atoi(cols[5]); err != nil || in.Quantity < 0 || in.Quantity > stock.MaxQuantity {
				problems[key] = "quantity must be a whole number between 0 and 2147483647"
				continue
			}
		}
		rows = append(rows, importRow{line: line, input: in})
	}
	return rows, problems
}

func lineError(line int, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindValidation {
		return apperr.Validation("row %d: %s", line, appErr.Message)
	}
	return err
}
