package stockrequest

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/ledger"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	root    stock.Actor
	adminA  stock.Actor
	adminB  stock.Actor
	agent   stock.Actor
	panel   models.Product
	battery models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	root := testutil.SeedUser(t, db, "root", models.RoleSuperAdmin, nil)
	a := testutil.SeedUser(t, db, "admina", models.RoleAdmin, nil)
	b := testutil.SeedUser(t, db, "adminb", models.RoleAdmin, nil)
	agent := testutil.SeedUser(t, db, "agent", models.RoleAgent, &a.ID)

	return &fixture{
		db:      db,
		svc:     NewService(db, testutil.Logger(), nil),
		root:    testutil.Actor(root),
		adminA:  testutil.Actor(a),
		adminB:  testutil.Actor(b),
		agent:   testutil.Actor(agent),
		panel:   testutil.SeedProduct(t, db, "Panel-400W", 100, "120"),
		battery: testutil.SeedProduct(t, db, "Battery-5kWh", 4, "900"),
	}
}

func (f *fixture) create(t *testing.T, actor stock.Actor, from string, items ...ItemInput) *models.StockRequest {
	t.Helper()
	req, err := f.svc.Create(context.Background(), actor, CreateInput{Items: items, RequestedFrom: from})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return req
}

func item(p models.Product, qty int) ItemInput {
	id := p.ID
	return ItemInput{ProductID: &id, Quantity: qty}
}

func TestCreateResolvesItemsAndNumbersSequentially(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, f.adminA, "super-admin", item(f.panel, 20), ItemInput{ProductName: "Mounting kit", Quantity: 2})
	if first.ID != "1" || first.Status != models.RequestPending {
		t.Errorf("first request = %s/%s", first.ID, first.Status)
	}
	if first.TotalQuantity != 22 || len(first.Items) != 2 {
		t.Errorf("total = %d, items = %d", first.TotalQuantity, len(first.Items))
	}
	if first.ProductName != "Panel-400W" || first.Items[0].Model != "Panel-400W-M" {
		t.Errorf("catalog fields not resolved: %+v", first.Items[0])
	}
	if first.RequestedFromRole != models.RoleSuperAdmin {
		t.Errorf("requested_from_role = %s", first.RequestedFromRole)
	}

	second := f.create(t, f.agent, "admin", item(f.panel, 1))
	if second.ID != "2" {
		t.Errorf("second id = %s, want 2", second.ID)
	}
	if second.RequestedFromRole != models.RoleAdmin || second.RequesterAdminID == nil || *second.RequesterAdminID != f.adminA.ID {
		t.Errorf("agent request = %+v", second)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor stock.Actor
		in    CreateInput
		kind  apperr.Kind
	}{
		{"no items", f.adminA, CreateInput{RequestedFrom: "super-admin"}, apperr.KindValidation},
		{"zero quantity", f.adminA, CreateInput{RequestedFrom: "super-admin", Items: []ItemInput{item(f.panel, 0)}}, apperr.KindValidation},
		{"item above bound", f.adminA, CreateInput{RequestedFrom: "super-admin", Items: []ItemInput{item(f.panel, stock.MaxQuantity+1)}}, apperr.KindValidation},
		{"wrapping total", f.adminA, CreateInput{RequestedFrom: "super-admin", Items: []ItemInput{
			item(f.panel, 1<<62), item(f.panel, 1<<62), item(f.panel, 1<<62), item(f.panel, 1<<62), item(f.panel, 1<<62),
		}}, apperr.KindValidation},
		{"total above bound", f.adminA, CreateInput{RequestedFrom: "super-admin", Items: []ItemInput{
			item(f.panel, stock.MaxQuantity), item(f.battery, 1),
		}}, apperr.KindValidation},
		{"unknown product", f.adminA, CreateInput{RequestedFrom: "super-admin", Items: []ItemInput{{ProductID: ptr(uint(999)), Quantity: 1}}}, apperr.KindValidation},
		{"source is not an admin", f.adminA, CreateInput{RequestedFrom: "999", Items: []ItemInput{item(f.panel, 1)}}, apperr.KindValidation},
		{"admin placeholder", f.adminA, CreateInput{RequestedFrom: "admin", Items: []ItemInput{item(f.panel, 1)}}, apperr.KindValidation},
		{"super-admin requester", f.root, CreateInput{RequestedFrom: "super-admin", Items: []ItemInput{item(f.panel, 1)}}, apperr.KindAuthorization},
	}
	for _, tc := range cases {
		if _, err := f.svc.Create(ctx, tc.actor, tc.in); !apperr.Is(err, tc.kind) {
			t.Errorf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}

	var n int64
	f.db.Model(&models.StockRequest{}).Count(&n)
	if n != 0 {
		t.Errorf("%d requests created by failing calls", n)
	}
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	f := newFixture(t)
	const n = 8

	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := f.svc.Create(context.Background(), f.adminA, CreateInput{
				Items:         []ItemInput{item(f.panel, i+1)},
				RequestedFrom: "super-admin",
			})
			errs[i] = err
			if err == nil {
				ids[i] = req.ID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("create %d: %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Errorf("id %s issued twice", ids[i])
		}
		seen[ids[i]] = true
	}
	for want := 1; want <= n; want++ {
		if !seen[strconv.Itoa(want)] {
			t.Errorf("id %d missing from %v", want, ids)
		}
	}
}

func TestDispatchMovesStockAndConserves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, f.adminA, "super-admin", item(f.panel, 20))

	before, _ := ledger.SystemTotal(f.db, f.panel.ID)
	got, err := f.svc.Dispatch(ctx, f.root, req.ID, DispatchInput{Image: "https://img/1.jpg"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got.Status != models.RequestDispatched || got.DispatchedByID == nil || *got.DispatchedByID != f.root.ID || got.DispatchImage != "https://img/1.jpg" {
		t.Errorf("dispatched request = %+v", got)
	}

	if c := testutil.CentralQty(t, f.db, f.panel.ID); c != 80 {
		t.Errorf("central = %d, want 80", c)
	}
	if p := testutil.PoolQty(t, f.db, f.adminA.ID, f.panel.ID); p != 20 {
		t.Errorf("pool = %d, want 20", p)
	}
	after, _ := ledger.SystemTotal(f.db, f.panel.ID)
	if before != after {
		t.Errorf("system total changed %d -> %d", before, after)
	}

	if n := testutil.CountTransactions(t, f.db, "stock_request_id = ? AND transaction_type = ?", req.ID, models.TxnTransfer); n != 2 {
		t.Errorf("transfer rows = %d, want 2", n)
	}
	if n := testutil.CountTransactions(t, f.db, "stock_request_id = ? AND admin_id IS NULL AND quantity = ?", req.ID, -20); n != 1 {
		t.Errorf("missing transfer-out from central")
	}
	if n := testutil.CountTransactions(t, f.db, "stock_request_id = ? AND admin_id = ? AND quantity = ?", req.ID, f.adminA.ID, 20); n != 1 {
		t.Errorf("missing transfer-in to admin A")
	}
}

func TestStatusGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, f.adminA, "super-admin", item(f.panel, 5))

	if _, err := f.svc.Confirm(ctx, f.adminA, req.ID, ConfirmInput{}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("confirming a pending request: expected conflict, got %v", err)
	}

	if _, err := f.svc.Dispatch(ctx, f.root, req.ID, DispatchInput{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := f.svc.Dispatch(ctx, f.root, req.ID, DispatchInput{}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("second dispatch: expected conflict, got %v", err)
	}
	if _, err := f.svc.Dispatch(ctx, f.root, req.ID, DispatchInput{RejectionReason: "late"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("rejecting a dispatched request: expected conflict, got %v", err)
	}
	if c := testutil.CentralQty(t, f.db, f.panel.ID); c != 95 {
		t.Errorf("central = %d after one dispatch, want 95", c)
	}

	if _, err := f.svc.Confirm(ctx, f.adminB, req.ID, ConfirmInput{}); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("confirm by non-requester: expected authorization error, got %v", err)
	}
	confirmed, err := f.svc.Confirm(ctx, f.adminA, req.ID, ConfirmInput{Image: "proof.jpg"})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.RequestConfirmed || confirmed.ConfirmImage != "proof.jpg" {
		t.Errorf("confirmed = %+v", confirmed)
	}
	if p := testutil.PoolQty(t, f.db, f.adminA.ID, f.panel.ID); p != 5 {
		t.Errorf("confirm changed the pool to %d", p)
	}
	if err := f.svc.Delete(ctx, f.adminA, req.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("deleting a confirmed request: expected conflict, got %v", err)
	}
}

func TestRejectLeavesStockAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, f.adminA, "super-admin", item(f.panel, 5))

	got, err := f.svc.Dispatch(ctx, f.adminB, req.ID, DispatchInput{RejectionReason: "out of season"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.RequestRejected || got.RejectionReason != "out of season" {
		t.Errorf("rejected = %+v", got)
	}
	if c := testutil.CentralQty(t, f.db, f.panel.ID); c != 100 {
		t.Errorf("central = %d", c)
	}
	if n := testutil.CountTransactions(t, f.db, ""); n != 0 {
		t.Errorf("%d transactions written by a rejection", n)
	}
	if _, err := f.svc.Dispatch(ctx, f.root, req.ID, DispatchInput{}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("dispatching a rejected request: expected conflict, got %v", err)
	}
}

func TestDispatchIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// battery has 4 in central
	req := f.create(t, f.adminA, "super-admin", item(f.panel, 10), item(f.battery, 5))

	_, err := f.svc.Dispatch(ctx, f.root, req.ID, DispatchInput{})
	if !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if c := testutil.CentralQty(t, f.db, f.panel.ID); c != 100 {
		t.Errorf("panel central = %d, want 100", c)
	}
	if c := testutil.CentralQty(t, f.db, f.battery.ID); c != 4 {
		t.Errorf("battery central = %d, want 4", c)
	}
	if p := testutil.PoolQty(t, f.db, f.adminA.ID, f.panel.ID); p != 0 {
		t.Errorf("admin pool = %d, want 0", p)
	}
	if n := testutil.CountTransactions(t, f.db, ""); n != 0 {
		t.Errorf("%d transactions written by a failed dispatch", n)
	}
	still, _ := f.svc.Get(ctx, f.adminA, req.ID)
	if still.Status != models.RequestPending {
		t.Errorf("status = %s, want pending", still.Status)
	}
}

func TestRepeatedProductLinesAreCheckedTogether(t *testing.T) {
	f := newFixture(t)
	req := f.create(t, f.adminA, "super-admin", item(f.battery, 3), item(f.battery, 2))

	if _, err := f.svc.Dispatch(context.Background(), f.root, req.ID, DispatchInput{}); !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if c := testutil.CentralQty(t, f.db, f.battery.ID); c != 4 {
		t.Errorf("battery central = %d", c)
	}
}

func TestConcurrentDispatchExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	req := f.create(t, f.adminA, "super-admin", item(f.panel, 30))

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Dispatch(context.Background(), f.root, req.ID, DispatchInput{})
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("successes = %d, conflicts = %d", ok, conflicts)
	}
	if c := testutil.CentralQty(t, f.db, f.panel.ID); c != 70 {
		t.Errorf("central = %d, want 70", c)
	}
	if p := testutil.PoolQty(t, f.db, f.adminA.ID, f.panel.ID); p != 30 {
		t.Errorf("pool = %d, want 30", p)
	}
}

func TestAdminToAdminAndPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedPool(t, f.db, f.adminA.ID, f.panel.ID, 10)

	// admin B asks admin A directly
	fromA := f.create(t, f.adminB, itoa(f.adminA.ID), item(f.panel, 4))
	if _, err := f.svc.Dispatch(ctx, f.adminB, fromA.ID, DispatchInput{}); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("self-dispatch: expected authorization error, got %v", err)
	}
	if _, err := f.svc.Dispatch(ctx, f.adminA, fromA.ID, DispatchInput{}); err != nil {
		t.Fatalf("dispatch by source admin: %v", err)
	}
	if p := testutil.PoolQty(t, f.db, f.adminA.ID, f.panel.ID); p != 6 {
		t.Errorf("admin A pool = %d, want 6", p)
	}
	if p := testutil.PoolQty(t, f.db, f.adminB.ID, f.panel.ID); p != 4 {
		t.Errorf("admin B pool = %d, want 4", p)
	}

	// the agent leaves the source open; only its own admin may resolve it
	open := f.create(t, f.agent, "admin", item(f.panel, 6))
	if _, err := f.svc.Dispatch(ctx, f.adminB, open.ID, DispatchInput{}); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("foreign admin resolving placeholder: expected authorization error, got %v", err)
	}
	got, err := f.svc.Dispatch(ctx, f.adminA, open.ID, DispatchInput{})
	if err != nil {
		t.Fatalf("placeholder dispatch: %v", err)
	}
	if got.RequestedFrom != itoa(f.adminA.ID) || got.RequestedFromRole != models.RoleAdmin {
		t.Errorf("placeholder not resolved: %s/%s", got.RequestedFrom, got.RequestedFromRole)
	}
	if p := testutil.PoolQty(t, f.db, f.adminA.ID, f.panel.ID); p != 0 {
		t.Errorf("admin A pool = %d, want 0 (row deleted)", p)
	}
	if p := testutil.PoolQty(t, f.db, f.agent.ID, f.panel.ID); p != 6 {
		t.Errorf("agent pool = %d, want 6", p)
	}
	total, _ := ledger.SystemTotal(f.db, f.panel.ID)
	if total != 110 {
		t.Errorf("system total = %d, want 110", total)
	}
}

func TestFreeTextItemsDoNotMoveStock(t *testing.T) {
	f := newFixture(t)
	req := f.create(t, f.adminA, "super-admin", ItemInput{ProductName: "Cable 10m", Quantity: 3})

	if _, err := f.svc.Dispatch(context.Background(), f.root, req.ID, DispatchInput{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n := testutil.CountTransactions(t, f.db, ""); n != 0 {
		t.Errorf("free-text dispatch wrote %d transactions", n)
	}
}

func TestUpdateAndDeletePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, f.adminA, "super-admin", item(f.panel, 5))

	if _, err := f.svc.Update(ctx, f.adminB, req.ID, UpdateInput{Items: []ItemInput{item(f.panel, 1)}}); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("update by non-requester: expected authorization error, got %v", err)
	}

	notes := "urgent"
	got, err := f.svc.Update(ctx, f.adminA, req.ID, UpdateInput{
		Items: []ItemInput{item(f.battery, 2), item(f.panel, 7)},
		Notes: &notes,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.TotalQuantity != 9 || len(got.Items) != 2 || got.ProductName != "Battery-5kWh" || got.Notes != "urgent" {
		t.Errorf("updated = %+v", got)
	}
	var items int64
	f.db.Model(&models.StockRequestItem{}).Where("stock_request_id = ?", req.ID).Count(&items)
	if items != 2 {
		t.Errorf("item rows = %d, want 2", items)
	}

	if err := f.svc.Delete(ctx, f.adminB, req.ID); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("delete by stranger: expected authorization error, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.root, req.ID); err != nil {
		t.Fatalf("super-admin delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.root, req.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}

	// ids are never reused
	next := f.create(t, f.adminA, "super-admin", item(f.panel, 1))
	if next.ID != "2" {
		t.Errorf("next id = %s, want 2", next.ID)
	}
}

func TestListIsScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.adminA, "super-admin", item(f.panel, 1))
	f.create(t, f.adminB, itoa(f.adminA.ID), item(f.panel, 1))
	f.create(t, f.agent, "admin", item(f.panel, 1))

	count := func(actor stock.Actor, view string) int {
		out, err := f.svc.List(ctx, actor, ListFilter{View: view})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		return len(out)
	}
	if n := count(f.root, ""); n != 3 {
		t.Errorf("super-admin sees %d, want 3", n)
	}
	if n := count(f.agent, ""); n != 1 {
		t.Errorf("agent sees %d, want 1", n)
	}
	if n := count(f.adminA, "mine"); n != 1 {
		t.Errorf("admin A mine = %d, want 1", n)
	}
	if n := count(f.adminA, "incoming"); n != 2 {
		t.Errorf("admin A incoming = %d, want 2", n)
	}
	// B sees its own request and A's central request it could fulfil
	if n := count(f.adminB, ""); n != 2 {
		t.Errorf("admin B sees %d, want 2", n)
	}
}

func ptr[T any](v T) *T { return &v }

func itoa(id uint) string {
	return stock.FromAdmin(id).String()
}
