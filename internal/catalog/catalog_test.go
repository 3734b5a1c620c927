package catalog

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestAdjustStock(t *testing.T) {
	db := testutil.NewDB(t)
	root := testutil.Actor(testutil.SeedUser(t, db, "root", models.RoleSuperAdmin, nil))
	admin := testutil.Actor(testutil.SeedUser(t, db, "admina", models.RoleAdmin, nil))
	p := testutil.SeedProduct(t, db, "Panel-400W", 10, "120")
	ctx := context.Background()

	got, err := AdjustStock(ctx, db, root, p.ID, 25, "container 7")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if got.Quantity != 35 {
		t.Errorf("quantity = %d, want 35", got.Quantity)
	}
	if _, err := AdjustStock(ctx, db, root, p.ID, -5, "damaged"); err != nil {
		t.Fatalf("write-off: %v", err)
	}
	if _, err := AdjustStock(ctx, db, root, p.ID, -31, ""); !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Errorf("expected insufficient stock, got %v", err)
	}
	if _, err := AdjustStock(ctx, db, admin, p.ID, 1, ""); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}
	if _, err := AdjustStock(ctx, db, root, 999, 1, ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	if got := testutil.CentralQty(t, db, p.ID); got != 30 {
		t.Errorf("central = %d, want 30", got)
	}
	if n := testutil.CountTransactions(t, db, "transaction_type = ? AND quantity = ?", models.TxnPurchase, 25); n != 1 {
		t.Errorf("purchase rows = %d", n)
	}
	if n := testutil.CountTransactions(t, db, "transaction_type = ? AND quantity = ?", models.TxnAdjustment, -5); n != 1 {
		t.Errorf("adjustment rows = %d", n)
	}
}

func TestProductLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	root := testutil.Actor(testutil.SeedUser(t, db, "root", models.RoleSuperAdmin, nil))
	ctx := context.Background()

	if _, err := CreateProduct(ctx, db, root, ProductInput{Name: "Inverter", Category: "Inverters"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("unknown category: expected validation error, got %v", err)
	}
	if _, err := CreateCategory(ctx, db, root, "Inverters"); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := CreateCategory(ctx, db, root, "Inverters"); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate category: expected conflict, got %v", err)
	}

	p, err := CreateProduct(ctx, db, root, ProductInput{
		Name:      "Inverter 5kW",
		Model:     "INV-5",
		Category:  "Inverters",
		UnitPrice: decimal.NewFromInt(42000),
		GSTRate:   decimal.NewFromInt(12),
		Quantity:  4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := testutil.CountTransactions(t, db, "product_id = ? AND transaction_type = ?", p.ID, models.TxnPurchase); n != 1 {
		t.Errorf("opening stock not logged")
	}

	name := "Inverter 5kW Hybrid"
	updated, err := UpdateProduct(ctx, db, root, p.ID, ProductPatch{Name: &name})
	if err != nil || updated.Name != name || updated.Quantity != 4 {
		t.Fatalf("update: %+v %v", updated, err)
	}

	if err := DeleteProduct(ctx, db, root, p.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("deleting stocked product: expected conflict, got %v", err)
	}

	bare, _ := CreateProduct(ctx, db, root, ProductInput{Name: "Cable"})
	if err := DeleteProduct(ctx, db, root, bare.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetProduct(ctx, db, bare.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	found, _ := ListProducts(ctx, db, "", "hybrid")
	if len(found) != 1 || found[0].ID != p.ID {
		t.Errorf("search = %+v", found)
	}
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestImportProducts(t *testing.T) {
	db := testutil.NewDB(t)
	root := testutil.Actor(testutil.SeedUser(t, db, "root", models.RoleSuperAdmin, nil))
	existing := testutil.SeedProduct(t, db, "Panel-400W", 10, "120")
	ctx := context.Background()

	header := []any{"name", "model", "category", "unit_price", "gst_rate", "quantity"}
	book := workbook(t, [][]any{
		header,
		{"Panel-400W", "Panel-400W-M", "", "120", "18", "15"},
		{"Battery 150Ah", "BAT-150", "", "9800.50", "28", "6"},
		{},
	})
	res, err := ImportProducts(ctx, db, root, book)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 1 || res.Restocked != 1 || res.Units != 21 {
		t.Errorf("result = %+v", res)
	}
	if got := testutil.CentralQty(t, db, existing.ID); got != 25 {
		t.Errorf("restocked central = %d, want 25", got)
	}

	bad := workbook(t, [][]any{header, {"Rail", "", "", "abc", "", "1"}, {"", "X", "", "", "", ""}})
	_, err = ImportProducts(ctx, db, root, bad)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("not an app error: %v", err)
	}
	if details, _ := appErr.Details.(map[string]string); len(details) != 2 {
		t.Errorf("details = %v", appErr.Details)
	}

	admin := testutil.Actor(testutil.SeedUser(t, db, "admina", models.RoleAdmin, nil))
	if _, err := ImportProducts(ctx, db, admin, workbook(t, [][]any{header})); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}
}
