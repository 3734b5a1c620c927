package stock

import (
	"strconv"
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
)

// Literals stored in StockRequest.RequestedFrom.
const (
	CentralLiteral    = "super-admin"
	UnassignedLiteral = "admin"
)

type SourceKind int

const (
	SourceCentral SourceKind = iota + 1
	SourceAdmin
	// SourceUnassigned is an agent request waiting for any eligible admin.
	SourceUnassigned
)

func (k SourceKind) String() string {
	switch k {
	case SourceCentral:
		return "central"
	case SourceAdmin:
		return "admin"
	case SourceUnassigned:
		return "unassigned"
	default:
		return "unknown"
	}
}

// Source is where a stock request draws its stock from.
type Source struct {
	kind    SourceKind
	adminID uint
}

func Central() Source { return Source{kind: SourceCentral} }

func Unassigned() Source { return Source{kind: SourceUnassigned} }

func FromAdmin(adminID uint) Source { return Source{kind: SourceAdmin, adminID: adminID} }

func (s Source) Kind() SourceKind { return s.kind }

// AdminID is only meaningful for SourceAdmin.
func (s Source) AdminID() uint { return s.adminID }

func (s Source) String() string {
	switch s.kind {
	case SourceCentral:
		return CentralLiteral
	case SourceUnassigned:
		return UnassignedLiteral
	case SourceAdmin:
		return strconv.FormatUint(uint64(s.adminID), 10)
	default:
		return ""
	}
}

// Role is the persisted requested_from_role.
func (s Source) Role() models.UserRole {
	if s.kind == SourceCentral {
		return models.RoleSuperAdmin
	}
	return models.RoleAdmin
}

// Pool is the balance the source draws from. Unassigned has none until it
// is resolved at dispatch.
func (s Source) Pool() (Pool, bool) {
	switch s.kind {
	case SourceCentral:
		return CentralPool(), true
	case SourceAdmin:
		return AdminPool(s.adminID), true
	default:
		return Pool{}, false
	}
}

func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return Source{}, apperr.Validation("requested_from is required")
	case CentralLiteral:
		return Central(), nil
	case UnassignedLiteral:
		return Unassigned(), nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return Source{}, apperr.Validation("requested_from must be %q, %q or an admin id", CentralLiteral, UnassignedLiteral)
	}
	return FromAdmin(uint(id)), nil
}

// SourceOf decodes the source stored on a request.
func SourceOf(r *models.StockRequest) (Source, error) {
	return ParseSource(r.RequestedFrom)
}
