package stock

import (
	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   uint
	Name string
	Role models.UserRole
	// AdminID is the owning admin when Role is agent.
	AdminID *uint
}

func (a Actor) IsSuperAdmin() bool { return a.Role == models.RoleSuperAdmin }

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

func (a Actor) IsAgent() bool { return a.Role == models.RoleAgent }

// HoldsPool reports whether the actor owns AdminInventory rows.
func (a Actor) HoldsPool() bool { return a.IsAdmin() || a.IsAgent() }

func AuthorizeCreateRequest(a Actor, src Source) error {
	if !a.HoldsPool() {
		return apperr.Authorization("only admins and agents can request stock")
	}
	switch src.Kind() {
	case SourceCentral:
		return nil
	case SourceAdmin:
		if src.AdminID() == a.ID {
			return apperr.Validation("cannot request stock from your own pool")
		}
		return nil
	case SourceUnassigned:
		if !a.IsAgent() {
			return apperr.Validation("only agents may leave the source admin unassigned")
		}
		return nil
	default:
		return apperr.Validation("unknown stock source")
	}
}

// AuthorizeDispatch decides who may dispatch or reject a request. The status
// check is separate (Transition).
func AuthorizeDispatch(a Actor, r *models.StockRequest) error {
	if a.IsSuperAdmin() {
		return nil
	}
	if !a.IsAdmin() {
		return apperr.Authorization("only admins can dispatch stock requests")
	}
	if r.RequestedByID == a.ID {
		return apperr.Authorization("cannot dispatch your own stock request")
	}

	src, err := SourceOf(r)
	if err != nil {
		return err
	}
	switch src.Kind() {
	case SourceAdmin:
		if src.AdminID() == a.ID {
			return nil
		}
		return apperr.Authorization("stock request %s is addressed to another admin", r.ID)
	case SourceCentral:
		// fulfilling on the super-admin's behalf
		return nil
	case SourceUnassigned:
		if r.RequestedByRole != models.RoleAgent {
			return apperr.Authorization("stock request %s has no resolvable source", r.ID)
		}
		if r.RequesterAdminID != nil && *r.RequesterAdminID != a.ID {
			return apperr.Authorization("stock request %s belongs to another admin's agent", r.ID)
		}
		return nil
	default:
		return apperr.Authorization("stock request %s has an unknown source", r.ID)
	}
}

func AuthorizeConfirm(a Actor, r *models.StockRequest) error {
	if r.RequestedByID != a.ID {
		return apperr.Authorization("only the requester can confirm stock request %s", r.ID)
	}
	return nil
}

func AuthorizeModifyRequest(a Actor, r *models.StockRequest) error {
	if r.RequestedByID != a.ID {
		return apperr.Authorization("only the requester can change stock request %s", r.ID)
	}
	return nil
}

func AuthorizeDeleteRequest(a Actor, r *models.StockRequest) error {
	if a.IsSuperAdmin() || r.RequestedByID == a.ID {
		return nil
	}
	return apperr.Authorization("only the requester or a super-admin can delete stock request %s", r.ID)
}

// CanViewRequest: requester, super-admin, anyone allowed to dispatch it, and
// the owning admin of an agent requester.
func CanViewRequest(a Actor, r *models.StockRequest) bool {
	if a.IsSuperAdmin() || r.RequestedByID == a.ID {
		return true
	}
	if a.IsAdmin() && r.RequesterAdminID != nil && *r.RequesterAdminID == a.ID {
		return true
	}
	if r.DispatchedByID != nil && *r.DispatchedByID == a.ID {
		return true
	}
	return AuthorizeDispatch(a, r) == nil
}

func AuthorizeCreateReturn(a Actor) error {
	if !a.IsAdmin() {
		return apperr.Authorization("only admins can return stock")
	}
	return nil
}

func AuthorizeModifyReturn(a Actor, r *models.StockReturn) error {
	if !a.IsAdmin() || r.AdminID != a.ID {
		return apperr.Authorization("only the returning admin can change stock return %d", r.ID)
	}
	return nil
}

func AuthorizeDeleteReturn(a Actor, r *models.StockReturn) error {
	if a.IsSuperAdmin() || (a.IsAdmin() && r.AdminID == a.ID) {
		return nil
	}
	return apperr.Authorization("only the returning admin or a super-admin can delete stock return %d", r.ID)
}

func AuthorizeProcessReturn(a Actor) error {
	if !a.IsSuperAdmin() {
		return apperr.Authorization("only a super-admin can process stock returns")
	}
	return nil
}

func CanViewReturn(a Actor, r *models.StockReturn) bool {
	return a.IsSuperAdmin() || r.AdminID == a.ID
}

func AuthorizeCreateSale(a Actor) error {
	if a.Role == models.RoleAccount {
		return apperr.Authorization("account users cannot record sales")
	}
	return nil
}

func AuthorizeModifySale(a Actor, s *models.Sale) error {
	if a.IsSuperAdmin() || s.CreatedByID == a.ID {
		return nil
	}
	return apperr.Authorization("only the seller or a super-admin can change sale %s", s.ID)
}

func AuthorizeDeleteSale(a Actor) error {
	if !a.IsSuperAdmin() {
		return apperr.Authorization("only a super-admin can delete sales")
	}
	return nil
}

func CanViewSale(a Actor, s *models.Sale) bool {
	return a.IsSuperAdmin() || a.Role == models.RoleAccount || s.CreatedByID == a.ID
}

func AuthorizeConfirmBill(a Actor) error {
	if a.Role != models.RoleAccount {
		return apperr.Authorization("only the account role can confirm bills")
	}
	return nil
}

func AuthorizeManageInventory(a Actor) error {
	if !a.IsSuperAdmin() {
		return apperr.Authorization("only a super-admin can manage inventory directly")
	}
	return nil
}

// CanViewPool: super-admin sees every pool, everyone else their own.
func CanViewPool(a Actor, ownerID uint) bool {
	return a.IsSuperAdmin() || a.ID == ownerID
}
