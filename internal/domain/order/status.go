package order

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// normalizeToken folds casing and separators so "Received", "RECEIVED" and
// " received " all map to the canonical lowercase token.
func normalizeToken(raw string) string {
	s := cases.Fold().String(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// OrderStatus represents the fulfilment status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusApproved   OrderStatus = "approved"
	OrderStatusRejected   OrderStatus = "rejected"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusReceived   OrderStatus = "received"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus normalizes a server-provided status to its canonical casing.
// The second return value is false when the value is not a known status.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(normalizeToken(raw))
	if s == "canceled" {
		s = OrderStatusCancelled
	}
	return s, s.IsValid()
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusReceived, OrderStatusCompleted,
		OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// Label returns a human readable label, e.g. "Delivered"
func (s OrderStatus) Label() string {
	return cases.Title(language.English).String(string(s))
}

// IsDeliveryConfirmed reports whether goods have physically reached the buyer.
// Payment amounts may only be submitted from these states.
func (s OrderStatus) IsDeliveryConfirmed() bool {
	return s == OrderStatusDelivered || s == OrderStatusReceived || s == OrderStatusCompleted
}

// IsClosed reports whether the order was turned down or withdrawn
func (s OrderStatus) IsClosed() bool {
	return s == OrderStatusRejected || s == OrderStatusCancelled
}

// PaymentStatus represents the settlement status of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
	PaymentStatusPaid     PaymentStatus = "paid"
)

// ParsePaymentStatus normalizes a server-provided payment status
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	s := PaymentStatus(normalizeToken(raw))
	return s, s.IsValid()
}

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected, PaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Label returns a human readable label
func (s PaymentStatus) Label() string {
	return cases.Title(language.English).String(string(s))
}

// IsTerminal reports whether no further payment transition exists
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusRejected
}

// CanTransitionTo checks the shared payment graph:
// pending -> {approved, rejected}, approved -> paid.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusApproved || target == PaymentStatusRejected
	case PaymentStatusApproved:
		return target == PaymentStatusPaid
	case PaymentStatusPaid, PaymentStatusRejected:
		return false // Terminal states
	}
	return false
}
