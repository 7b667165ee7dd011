package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NotFoundError indicates the addressed entity does not exist.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ReferenceNotFoundError indicates a referenced product or party is missing
// or inactive.
type ReferenceNotFoundError struct {
	Reference string
	ID        uuid.UUID
	Inactive  bool
}

func (e *ReferenceNotFoundError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("%s %s is inactive", e.Reference, e.ID)
	}
	return fmt.Sprintf("%s %s does not exist", e.Reference, e.ID)
}

// ValidationError carries every violated field rule of one request.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// OverDispatchError indicates a dispatch would push the dispatched total of
// an order past its ordered quantity.
type OverDispatchError struct {
	OrderID    uuid.UUID
	Requested  int
	Ordered    int
	Dispatched int
}

func (e *OverDispatchError) Error() string {
	return fmt.Sprintf(
		"cannot dispatch %d trucks against order %s: %d ordered, %d already dispatched, %d available",
		e.Requested, e.OrderID, e.Ordered, e.Dispatched, e.Ordered-e.Dispatched,
	)
}

// OrderLockedError indicates an edit was attempted on a completed order.
type OrderLockedError struct {
	OrderID uuid.UUID
}

func (e *OrderLockedError) Error() string {
	return fmt.Sprintf("order %s is completed and can no longer be edited", e.OrderID)
}

// QuantityBelowDispatchedError indicates an ordered-quantity reduction below
// the already dispatched total.
type QuantityBelowDispatchedError struct {
	OrderID    uuid.UUID
	Requested  int
	Dispatched int
}

func (e *QuantityBelowDispatchedError) Error() string {
	return fmt.Sprintf(
		"cannot reduce order %s to %d trucks: %d already dispatched",
		e.OrderID, e.Requested, e.Dispatched,
	)
}
