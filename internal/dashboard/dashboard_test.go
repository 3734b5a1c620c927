package dashboard

import (
	"context"
	"testing"
	"time"

	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/testutil"
)

func TestChartWindow(t *testing.T) {
	now := time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC) // Thursday

	cases := []struct {
		period, wantPeriod string
		count              int
		from, to           string
	}{
		{"daily", "daily", 7, "2026-10-09", "2026-10-16"},
		{"weekly", "weekly", 2, "2026-10-05", "2026-10-19"},
		{"monthly", "monthly", 3, "2026-08-01", "2026-11-01"},
		{"hourly", "daily", 0, "2026-10-09", "2026-10-16"},
	}
	for _, tc := range cases {
		p, _, start, end := chartWindow(tc.period, tc.count, now)
		if p != tc.wantPeriod || start.Format("2006-01-02") != tc.from || end.Format("2006-01-02") != tc.to {
			t.Errorf("%s/%d: got %s %s..%s", tc.period, tc.count, p, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
	}
}

func TestBuildStockChart(t *testing.T) {
	db := testutil.NewDB(t)
	root := testutil.Actor(testutil.SeedUser(t, db, "root", models.RoleSuperAdmin, nil))
	admin := testutil.SeedUser(t, db, "admina", models.RoleAdmin, nil)
	p := testutil.SeedProduct(t, db, "Panel-400W", 100, "120")

	now := time.Now().UTC()
	yesterday := now.AddDate(0, 0, -1)
	adminID := admin.ID
	rows := []models.InventoryTransaction{
		{ProductID: p.ID, TransactionType: models.TxnPurchase, Quantity: 50, CreatedAt: yesterday},
		{ProductID: p.ID, TransactionType: models.TxnTransfer, Quantity: -20, CreatedAt: now},
		{ProductID: p.ID, AdminID: &adminID, TransactionType: models.TxnTransfer, Quantity: 20, CreatedAt: now},
		{ProductID: p.ID, AdminID: &adminID, TransactionType: models.TxnSale, Quantity: -5, CreatedAt: now},
		{ProductID: p.ID, TransactionType: models.TxnSale, Quantity: -1, CreatedAt: now.AddDate(0, 0, -30)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatal(err)
	}

	chart, err := BuildStockChart(context.Background(), db, root, "daily", 7, 0, now)
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	if len(chart.Points) != 2 {
		t.Fatalf("points = %+v", chart.Points)
	}
	want := ChartTotals{Purchased: 50, Sold: 5, Transferred: 20}
	if chart.GrandTotals != want {
		t.Errorf("totals = %+v, want %+v", chart.GrandTotals, want)
	}

	own, err := BuildStockChart(context.Background(), db, testutil.Actor(admin), "monthly", 1, p.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if own.GrandTotals.Sold != 5 || own.GrandTotals.Transferred != 0 {
		t.Errorf("admin totals = %+v", own.GrandTotals)
	}
}

func TestStockChartIncludesOwnReturns(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.SeedUser(t, db, "admina", models.RoleAdmin, nil)
	other := testutil.SeedUser(t, db, "adminb", models.RoleAdmin, nil)
	p := testutil.SeedProduct(t, db, "Panel-400W", 100, "120")

	ret := models.StockReturn{AdminID: admin.ID, AdminName: admin.Name, ProductID: p.ID, Quantity: 10, Status: models.ReturnCompleted}
	if err := db.Create(&ret).Error; err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	row := models.InventoryTransaction{ProductID: p.ID, TransactionType: models.TxnReturn, Quantity: 10, StockReturnID: &ret.ID, CreatedAt: now}
	if err := db.Create(&row).Error; err != nil {
		t.Fatal(err)
	}

	own, err := BuildStockChart(context.Background(), db, testutil.Actor(admin), "daily", 7, 0, now)
	if err != nil {
		t.Fatal(err)
	}
	if own.GrandTotals.Returned != 10 {
		t.Errorf("admin returned total = %d, want 10", own.GrandTotals.Returned)
	}
	theirs, err := BuildStockChart(context.Background(), db, testutil.Actor(other), "daily", 7, 0, now)
	if err != nil {
		t.Fatal(err)
	}
	if theirs.GrandTotals.Returned != 0 {
		t.Errorf("other admin returned total = %d, want 0", theirs.GrandTotals.Returned)
	}
}

func TestOverview(t *testing.T) {
	db := testutil.NewDB(t)
	root := testutil.Actor(testutil.SeedUser(t, db, "root", models.RoleSuperAdmin, nil))
	a := testutil.SeedUser(t, db, "admina", models.RoleAdmin, nil)
	b := testutil.SeedUser(t, db, "adminb", models.RoleAdmin, nil)
	panel := testutil.SeedProduct(t, db, "Panel-400W", 80, "120")
	testutil.SeedProduct(t, db, "Battery", 3, "9000")
	testutil.SeedPool(t, db, a.ID, panel.ID, 15)
	testutil.SeedPool(t, db, b.ID, panel.ID, 5)

	rows, err := Overview(context.Background(), db, root, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Name != "Battery" || !rows[0].Low {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[1].Pooled != 20 || rows[1].Total != 100 || rows[1].Low {
		t.Errorf("panel = %+v", rows[1])
	}

	mine, _ := Overview(context.Background(), db, testutil.Actor(a), 5)
	if mine[1].Pooled != 15 || mine[0].Pooled != 0 || !mine[0].Low {
		t.Errorf("admin view = %+v", mine)
	}
}
