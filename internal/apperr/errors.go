// Package apperr is the error taxonomy shared by the inventory services and
// the HTTP layer. Services return *Error values; the Fiber error handler
// renders them.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindAuthentication    Kind = "AUTHENTICATION_ERROR"
	KindAuthorization     Kind = "AUTHORIZATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "DOMAIN_CONFLICT"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindSystem            Kind = "SYSTEM_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindConflict, KindInsufficientStock:
		return fiber.StatusBadRequest
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// WithDetails returns a copy carrying field-level or stock details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// StockShortage describes which balance could not cover a movement.
type StockShortage struct {
	ProductID uint   `json:"product_id"`
	Pool      string `json:"pool"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func InsufficientStock(s StockShortage) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for product %d in %s pool: requested %d, available %d", s.ProductID, s.Pool, s.Requested, s.Available),
		Details: s,
	}
}

// System wraps an unexpected failure. The message reaches the log, never the caller.
func System(message string, err error) *Error {
	return &Error{Kind: KindSystem, Message: message, Err: err}
}

// KindOf reports the taxonomy kind of err; anything unknown is a system error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
