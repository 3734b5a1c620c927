package stock

import (
	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/models"
)

var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.RequestPending:    {models.RequestDispatched, models.RequestRejected},
	models.RequestDispatched: {models.RequestConfirmed},
}

func CanTransition(from, to models.RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns a conflict error for every move outside the table.
func Transition(from, to models.RequestStatus) error {
	if !CanTransition(from, to) {
		return apperr.Conflict("stock request cannot move from %s to %s", from, to)
	}
	return nil
}

// RequirePending guards edits and deletes.
func RequirePending(status models.RequestStatus) error {
	if status != models.RequestPending {
		return apperr.Conflict("stock request is %s, only pending requests can be changed", status)
	}
	return nil
}

func RequireReturnPending(status models.ReturnStatus) error {
	if status != models.ReturnPending {
		return apperr.Conflict("stock return is %s, only pending returns can be changed", status)
	}
	return nil
}
