package txlog

import (
	"fmt"

	"solar-inventory-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Transactions"

var exportHeader = []any{
	"ID", "Date", "Product ID", "Pool", "Type", "Quantity",
	"Reference", "Stock Request", "Sale", "Stock Return", "By", "Notes",
}

// Workbook renders rows as a single-sheet XLSX file.
func Workbook(rows []models.InventoryTransaction) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(exportSheet, 1, 1, bold)
	}

	for i, r := range rows {
		pool := "central"
		if r.AdminID != nil {
			pool = fmt.Sprintf("admin %d", *r.AdminID)
		}
		var requestID, saleID, returnID any
		if r.StockRequestID != nil {
			requestID = *r.StockRequestID
		}
		if r.SaleID != nil {
			saleID = *r.SaleID
		}
		if r.StockReturnID != nil {
			returnID = *r.StockReturnID
		}

		row := []any{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.ProductID,
			pool,
			string(r.TransactionType),
			r.Quantity,
			r.Reference,
			requestID,
			saleID,
			returnID,
			r.CreatedByName,
			r.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	_ = f.SetColWidth(exportSheet, "A", "L", 16)
	return f, nil
}
