package service

import (
	"fmt"

	"github.com/google/uuid"
)

// Business error kinds surfaced by the processors. Handlers map these to
// HTTP statuses with errors.As; anything else is an internal failure and is
// not exposed with driver detail.

// NotFoundError reports a missing referenced entity (product, client, ...).
type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Ref)
}

// InsufficientStockError rejects a sale line that would drive stock negative.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// DuplicateInvoiceError rejects re-ingestion of an already processed invoice number.
type DuplicateInvoiceError struct {
	InvoiceNumber string
}

func (e *DuplicateInvoiceError) Error() string {
	return fmt.Sprintf("invoice %s has already been processed", e.InvoiceNumber)
}

// ValidationError reports invalid input that slipped past request binding
// (empty supplier tax id, non-positive quantity, unknown enum value, ...).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
