package txlog

import "errors"

var (
	errAlreadyWritten = errors.New("inventory transactions are append-only")
	errZeroQuantity   = errors.New("inventory transaction quantity must not be zero")
	errMissingType    = errors.New("inventory transaction type is required")
)
