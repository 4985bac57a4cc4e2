package models

import "marketplace-service/internal/apperr"

// Status is an order lifecycle status, shared by retail and wholesale orders.
type Status string

const (
	StatusPending        Status = "pending"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// ParseStatus validates a status value against the fixed enum.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", apperr.Validationf("invalid status %q", s)
}

// CanTransitionTo reports whether an admin may move an order from s to next.
// Any non-cancelled state may move to any valid status; leaving cancelled
// is forbidden.
func (s Status) CanTransitionTo(next Status) error {
	if s == StatusCancelled && next != StatusCancelled {
		return apperr.InvalidTransitionf("cannot change status of a cancelled order")
	}
	return nil
}

// CancellableByCustomer reports whether a customer may cancel an order in
// state s. Delivered and already-cancelled orders cannot be cancelled.
func (s Status) CancellableByCustomer() error {
	switch s {
	case StatusCancelled:
		return apperr.InvalidTransitionf("order already cancelled")
	case StatusDelivered:
		return apperr.InvalidTransitionf("cannot cancel delivered order")
	}
	return nil
}
