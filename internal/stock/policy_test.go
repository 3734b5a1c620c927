package stock

import (
	"testing"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
)

func uintPtr(v uint) *uint { return &v }

var (
	superAdmin = Actor{ID: 1, Name: "root", Role: models.RoleSuperAdmin}
	adminA     = Actor{ID: 10, Name: "A", Role: models.RoleAdmin}
	adminB     = Actor{ID: 11, Name: "B", Role: models.RoleAdmin}
	agentOfA   = Actor{ID: 20, Name: "agent", Role: models.RoleAgent, AdminID: uintPtr(10)}
	accountant = Actor{ID: 30, Name: "acc", Role: models.RoleAccount}
)

func TestAuthorizeCreateRequest(t *testing.T) {
	cases := []struct {
		name  string
		actor Actor
		src   Source
		kind  apperr.Kind // empty = allowed
	}{
		{"admin from central", adminA, Central(), ""},
		{"admin from other admin", adminA, FromAdmin(11), ""},
		{"admin from self", adminA, FromAdmin(10), apperr.KindValidation},
		{"admin placeholder", adminA, Unassigned(), apperr.KindValidation},
		{"agent placeholder", agentOfA, Unassigned(), ""},
		{"agent from admin", agentOfA, FromAdmin(10), ""},
		{"super-admin", superAdmin, Central(), apperr.KindAuthorization},
		{"account", accountant, Central(), apperr.KindAuthorization},
	}
	for _, tc := range cases {
		err := AuthorizeCreateRequest(tc.actor, tc.src)
		if tc.kind == "" && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if tc.kind != "" && !apperr.Is(err, tc.kind) {
			t.Errorf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}
}

func TestAuthorizeDispatch(t *testing.T) {
	fromCentral := &models.StockRequest{ID: "1", RequestedByID: adminA.ID, RequestedByRole: models.RoleAdmin, RequestedFrom: "super-admin"}
	fromB := &models.StockRequest{ID: "2", RequestedByID: adminA.ID, RequestedByRole: models.RoleAdmin, RequestedFrom: "11"}
	placeholder := &models.StockRequest{ID: "3", RequestedByID: agentOfA.ID, RequestedByRole: models.RoleAgent, RequesterAdminID: uintPtr(10), RequestedFrom: "admin"}
	orphanPlaceholder := &models.StockRequest{ID: "4", RequestedByID: 21, RequestedByRole: models.RoleAgent, RequestedFrom: "admin"}

	cases := []struct {
		name    string
		actor   Actor
		request *models.StockRequest
		allowed bool
	}{
		{"super-admin central", superAdmin, fromCentral, true},
		{"super-admin admin source", superAdmin, fromB, true},
		{"requester self-dispatch", adminA, fromCentral, false},
		{"other admin on behalf of central", adminB, fromCentral, true},
		{"declared source admin", adminB, fromB, true},
		{"placeholder by owning admin", adminA, placeholder, true},
		{"placeholder by other admin", adminB, placeholder, false},
		{"orphan placeholder by any admin", adminB, orphanPlaceholder, true},
		{"agent cannot dispatch", agentOfA, fromB, false},
		{"account cannot dispatch", accountant, fromCentral, false},
	}
	for _, tc := range cases {
		err := AuthorizeDispatch(tc.actor, tc.request)
		if tc.allowed && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.allowed && !apperr.Is(err, apperr.KindAuthorization) {
			t.Errorf("%s: expected authorization error, got %v", tc.name, err)
		}
	}
}

func TestRequesterOnlyPolicies(t *testing.T) {
	r := &models.StockRequest{ID: "5", RequestedByID: adminA.ID, RequestedFrom: "super-admin"}

	if err := AuthorizeConfirm(adminA, r); err != nil {
		t.Errorf("requester should confirm: %v", err)
	}
	if err := AuthorizeConfirm(superAdmin, r); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("super-admin must not confirm someone else's receipt, got %v", err)
	}
	if err := AuthorizeModifyRequest(adminB, r); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("other admin must not modify, got %v", err)
	}
	if err := AuthorizeDeleteRequest(superAdmin, r); err != nil {
		t.Errorf("super-admin may delete: %v", err)
	}
	if err := AuthorizeDeleteRequest(adminB, r); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("other admin must not delete, got %v", err)
	}
}

func TestReturnAndSalePolicies(t *testing.T) {
	ret := &models.StockReturn{ID: 3, AdminID: adminA.ID}

	if err := AuthorizeCreateReturn(agentOfA); err == nil {
		t.Error("agents cannot create returns")
	}
	if err := AuthorizeModifyReturn(adminB, ret); err == nil {
		t.Error("only the owner modifies a return")
	}
	if err := AuthorizeDeleteReturn(superAdmin, ret); err != nil {
		t.Errorf("super-admin may delete a return: %v", err)
	}
	if err := AuthorizeProcessReturn(adminA); err == nil {
		t.Error("admins cannot process returns")
	}
	if err := AuthorizeConfirmBill(superAdmin); err == nil {
		t.Error("only the account role confirms bills")
	}
	if err := AuthorizeConfirmBill(accountant); err != nil {
		t.Errorf("account role confirms bills: %v", err)
	}
	if !CanViewSale(accountant, &models.Sale{CreatedByID: adminA.ID}) {
		t.Error("account role sees every sale")
	}
	if CanViewSale(adminB, &models.Sale{CreatedByID: adminA.ID}) {
		t.Error("admins only see their own sales")
	}
}

func TestCanViewRequest(t *testing.T) {
	placeholder := &models.StockRequest{ID: "6", RequestedByID: agentOfA.ID, RequestedByRole: models.RoleAgent, RequesterAdminID: uintPtr(10), RequestedFrom: "admin"}
	if !CanViewRequest(adminA, placeholder) {
		t.Error("owning admin sees the agent's request")
	}
	if CanViewRequest(adminB, placeholder) {
		t.Error("other admin must not see the agent's request")
	}
	if !CanViewRequest(agentOfA, placeholder) {
		t.Error("requester sees own request")
	}
}
