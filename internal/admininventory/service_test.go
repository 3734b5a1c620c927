package admininventory

import (
	"context"
	"testing"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	root    stock.Actor
	admin   stock.Actor
	other   stock.Actor
	account stock.Actor
	panel   models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	root := testutil.SeedUser(t, db, "root", models.RoleSuperAdmin, nil)
	admin := testutil.SeedUser(t, db, "admina", models.RoleAdmin, nil)
	other := testutil.SeedUser(t, db, "adminb", models.RoleAdmin, nil)
	account := testutil.SeedUser(t, db, "books", models.RoleAccount, nil)
	return &fixture{
		db:      db,
		svc:     NewService(db, testutil.Logger()),
		root:    testutil.Actor(root),
		admin:   testutil.Actor(admin),
		other:   testutil.Actor(other),
		account: testutil.Actor(account),
		panel:   testutil.SeedProduct(t, db, "Panel-400W", 100, "120"),
	}
}

func TestSetLogsSignedDeltas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.Set(ctx, f.root, SetInput{AdminID: f.admin.ID, ProductID: f.panel.ID, Quantity: 12})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if out.Delta != 12 || out.Row == nil || out.Row.Quantity != 12 {
		t.Fatalf("unexpected change %+v", out)
	}

	out, err = f.svc.Update(ctx, f.root, out.Row.ID, 7, "count correction")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out.Delta != -5 || out.Row.Quantity != 7 {
		t.Errorf("unexpected change %+v", out)
	}

	if n := testutil.CountTransactions(t, f.db, "admin_id = ? AND transaction_type = ? AND quantity = ?", f.admin.ID, models.TxnAdjustment, 12); n != 1 {
		t.Errorf("missing +12 adjustment")
	}
	if n := testutil.CountTransactions(t, f.db, "admin_id = ? AND transaction_type = ? AND quantity = ?", f.admin.ID, models.TxnAdjustment, -5); n != 1 {
		t.Errorf("missing -5 adjustment")
	}
	if got := testutil.CentralQty(t, f.db, f.panel.ID); got != 100 {
		t.Errorf("central = %d, direct edits must not touch it", got)
	}

	same, err := f.svc.Set(ctx, f.root, SetInput{AdminID: f.admin.ID, ProductID: f.panel.ID, Quantity: 7})
	if err != nil || same.Delta != 0 {
		t.Fatalf("no-op set: %+v %v", same, err)
	}
	if n := testutil.CountTransactions(t, f.db, ""); n != 2 {
		t.Errorf("a no-op set must not log, got %d rows", n)
	}

	removed, err := f.svc.Delete(ctx, f.root, out.Row.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.Row != nil || removed.Delta != -7 {
		t.Errorf("unexpected delete result %+v", removed)
	}
	if got := testutil.PoolQty(t, f.db, f.admin.ID, f.panel.ID); got != 0 {
		t.Errorf("pool = %d after delete", got)
	}
}

func TestSetValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor stock.Actor
		in    SetInput
		kind  apperr.Kind
	}{
		{"admin cannot manage", f.admin, SetInput{AdminID: f.admin.ID, ProductID: f.panel.ID, Quantity: 1}, apperr.KindAuthorization},
		{"negative", f.root, SetInput{AdminID: f.admin.ID, ProductID: f.panel.ID, Quantity: -1}, apperr.KindValidation},
		{"account holds no pool", f.root, SetInput{AdminID: f.account.ID, ProductID: f.panel.ID, Quantity: 1}, apperr.KindValidation},
		{"unknown owner", f.root, SetInput{AdminID: 999, ProductID: f.panel.ID, Quantity: 1}, apperr.KindNotFound},
		{"unknown product", f.root, SetInput{AdminID: f.admin.ID, ProductID: 999, Quantity: 1}, apperr.KindValidation},
	}
	for _, tc := range cases {
		if _, err := f.svc.Set(ctx, tc.actor, tc.in); !apperr.Is(err, tc.kind) {
			t.Errorf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedPool(t, f.db, f.admin.ID, f.panel.ID, 3)
	testutil.SeedPool(t, f.db, f.other.ID, f.panel.ID, 4)

	all, _ := f.svc.List(ctx, f.root, ListFilter{})
	if len(all) != 2 {
		t.Errorf("super-admin sees %d rows", len(all))
	}
	own, _ := f.svc.List(ctx, f.admin, ListFilter{AdminID: f.other.ID})
	if len(own) != 1 || own[0].AdminID != f.admin.ID {
		t.Errorf("admin list leaked other pools: %+v", own)
	}
	if _, err := f.svc.ForOwner(ctx, f.admin, f.other.ID); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}
	rows, err := f.svc.ForOwner(ctx, f.root, f.other.ID)
	if err != nil || len(rows) != 1 || rows[0].Quantity != 4 {
		t.Errorf("for owner: %+v %v", rows, err)
	}
	if _, err := f.svc.Get(ctx, f.other, own[0].ID); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}
}
