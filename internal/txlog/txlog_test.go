package txlog

import (
	"testing"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/testutil"
)

func TestAppendAndList(t *testing.T) {
	db := testutil.NewDB(t)
	root := stock.Actor{ID: 1, Name: "root", Role: models.RoleSuperAdmin}
	adminA := stock.Actor{ID: 10, Name: "A", Role: models.RoleAdmin}
	adminB := stock.Actor{ID: 11, Name: "B", Role: models.RoleAdmin}

	out := Movement(models.TxnTransfer, stock.CentralPool(), 5, -20, root, "stock request 1")
	in := Movement(models.TxnTransfer, stock.AdminPool(adminA.ID), 5, 20, root, "stock request 1")
	sale := Movement(models.TxnSale, stock.AdminPool(adminA.ID), 5, -3, adminA, "sale x")
	if err := Append(db, out, in, sale); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, err := List(db, root, Filter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("super-admin list = %d rows, %v", len(all), err)
	}
	central, _ := List(db, root, Filter{CentralOnly: true})
	if len(central) != 1 || central[0].Quantity != -20 {
		t.Errorf("central filter = %+v", central)
	}
	own, err := List(db, adminA, Filter{Type: models.TxnSale})
	if err != nil || len(own) != 1 {
		t.Errorf("admin A sale rows = %d, %v", len(own), err)
	}
	if rows, _ := List(db, adminB, Filter{}); len(rows) != 0 {
		t.Errorf("admin B must not see admin A's pool, got %d rows", len(rows))
	}
	if _, err := List(db, adminB, Filter{AdminID: adminA.ID}); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}
}

func TestAppendRejectsZeroQuantity(t *testing.T) {
	db := testutil.NewDB(t)
	e := Movement(models.TxnAdjustment, stock.CentralPool(), 1, 0, stock.Actor{ID: 1}, "")
	if err := Append(db, e); err == nil {
		t.Error("zero quantity movement must be rejected")
	}
	if n := testutil.CountTransactions(t, db, ""); n != 0 {
		t.Errorf("%d rows written", n)
	}
}

func TestWorkbook(t *testing.T) {
	req := "12"
	owner := uint(10)
	rows := []models.InventoryTransaction{
		{ID: 1, ProductID: 5, TransactionType: models.TxnTransfer, Quantity: -20, StockRequestID: &req, CreatedByName: "root"},
		{ID: 2, ProductID: 5, AdminID: &owner, TransactionType: models.TxnTransfer, Quantity: 20, StockRequestID: &req, CreatedByName: "root"},
	}
	f, err := Workbook(rows)
	if err != nil {
		t.Fatalf("workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(got))
	}
	if got[0][0] != "ID" || got[1][3] != "central" || got[2][3] != "admin 10" || got[2][5] != "20" || got[1][7] != "12" {
		t.Errorf("unexpected sheet contents: %v", got)
	}
}
