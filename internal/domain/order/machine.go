package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Validation error codes surfaced before any request is dispatched
const (
	CodeUnknownAction      = "UNKNOWN_ACTION"
	CodeMalformedOrder     = "MALFORMED_ORDER"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodeRoleNotAllowed     = "ROLE_NOT_ALLOWED"
	CodeNotOrderOwner      = "NOT_ORDER_OWNER"
	CodeNotAssignedDriver  = "NOT_ASSIGNED_DRIVER"
	CodePaymentNotEligible = "PAYMENT_NOT_ELIGIBLE"
	CodeDuplicatePayment   = "DUPLICATE_PAYMENT"
	CodeAmountOutOfRange   = "AMOUNT_OUT_OF_RANGE"
	CodeInvalidDriver      = "INVALID_DRIVER"
	CodeInvalidDraft       = "INVALID_ORDER_DRAFT"
)

// Request is an action together with its arguments
type Request struct {
	Action   Action
	Amount   decimal.Decimal
	DriverID string
}

// CanTransition is the pure legality predicate over the status axes: it
// reports whether role may trigger action on an order of the given flavor in
// the given statuses under the default policy. Ownership, amounts and the
// submitted total need the full order and are checked by Machine.Check.
func CanTransition(orderStatus OrderStatus, paymentStatus PaymentStatus, flavor Flavor, action Action, role Role) bool {
	spec, ok := specFor(action)
	if !ok {
		return false
	}
	return checkEdge(spec, orderStatus, paymentStatus, flavor, role, true) == nil
}

// Machine validates and applies lifecycle transitions under a Policy
type Machine struct {
	policy Policy
}

// NewMachine creates a state machine with the given policy
func NewMachine(policy Policy) *Machine {
	return &Machine{policy: policy}
}

// Policy returns the machine's policy
func (m *Machine) Policy() Policy {
	return m.policy
}

// CanTransition reports whether actor may perform req on o
func (m *Machine) CanTransition(o *Order, actor Actor, req Request) bool {
	return m.Check(o, actor, req) == nil
}

// Check validates req against o. The returned error is a *shared.DomainError
// suitable for showing to the user.
func (m *Machine) Check(o *Order, actor Actor, req Request) error {
	return m.check(o, actor, req, false)
}

// check validates the request. In offer mode the arguments of the request
// (amount, driver) are not inspected, which is what the resolver needs to
// decide whether an action should be offered at all.
func (m *Machine) check(o *Order, actor Actor, req Request, offer bool) error {
	spec, ok := specFor(req.Action)
	if !ok {
		return shared.NewDomainError(CodeUnknownAction, fmt.Sprintf("Unknown action %q", req.Action))
	}
	if !spec.allowsRole(actor.Role) {
		return shared.NewDomainError(CodeRoleNotAllowed,
			fmt.Sprintf("A %s cannot %s", roleNoun(actor.Role), strings.ToLower(spec.label)))
	}
	if o == nil {
		return shared.NewDomainError(CodeMalformedOrder, "Order is not loaded")
	}
	if !o.IsComplete() {
		return shared.NewDomainError(CodeMalformedOrder,
			fmt.Sprintf("Order data is incomplete (%s), please refresh", strings.Join(o.Problems, ", ")))
	}

	if err := checkEdge(spec, o.OrderStatus, o.PaymentStatus, o.Flavor, actor.Role, m.policy.SupervisorConfirmsPending); err != nil {
		return err
	}

	switch spec.action {
	case ActionMarkReceived:
		if !o.IsOwnedBy(actor.ID) {
			return shared.NewDomainError(CodeNotOrderOwner, "Only the customer who placed this order can confirm receipt")
		}
	case ActionMarkDelivered:
		if actor.Role == RoleDriver && !o.IsAssignedTo(actor.ID) {
			return shared.NewDomainError(CodeNotAssignedDriver, "This order is not assigned to you")
		}
	case ActionSubmitPayment:
		// The backend has no idempotency key for amount submissions, so a
		// second submission must never leave the client.
		if o.PaymentStatus != PaymentStatusPending || o.HasOutstandingPayment() {
			return shared.NewDomainError(CodeDuplicatePayment, "A payment has already been submitted for this order")
		}
		if !offer && !m.policy.AmountInRange(req.Amount) {
			return shared.NewDomainError(CodeAmountOutOfRange,
				fmt.Sprintf("Payment amount must be between %s and %s", m.policy.MinPaymentAmount.String(), m.policy.MaxPaymentAmount.String()))
		}
	case ActionApprovePayment, ActionRejectPayment, ActionConfirmPayment:
		// A supply payment is decided only once its amount has been submitted
		if o.Flavor == FlavorSupply && o.PaymentStatus == PaymentStatusPending && !o.HasOutstandingPayment() {
			return shared.NewDomainError(CodePaymentNotEligible, "No payment amount has been submitted for this order yet")
		}
	case ActionAssignDriver:
		if !offer && strings.TrimSpace(req.DriverID) == "" {
			return shared.NewDomainError(CodeInvalidDriver, "Select a driver to assign")
		}
	}
	return nil
}

// checkEdge validates the flavor, the role and the status edge of an action
func checkEdge(spec actionSpec, orderStatus OrderStatus, paymentStatus PaymentStatus, flavor Flavor, role Role, pendingConfirm bool) error {
	if !spec.allowsRole(role) {
		return shared.NewDomainError(CodeRoleNotAllowed,
			fmt.Sprintf("A %s cannot %s", roleNoun(role), strings.ToLower(spec.label)))
	}
	if !flavor.IsValid() || !spec.allowsFlavor(flavor) {
		return illegal(spec, orderStatus)
	}

	switch spec.axis {
	case AxisOrder:
		if !spec.startsFrom(orderStatus) || !flavor.CanAdvance(orderStatus, spec.to) {
			return illegal(spec, orderStatus)
		}
	case AxisRelation:
		if !spec.startsFrom(orderStatus) {
			return illegal(spec, orderStatus)
		}
	case AxisAmount:
		if !spec.startsFrom(orderStatus) {
			return shared.NewDomainError(CodePaymentNotEligible,
				"Payment can only be submitted after the order has been delivered")
		}
		if !spec.startsFromPayment(paymentStatus) {
			return shared.NewDomainError(CodeDuplicatePayment, "A payment has already been submitted for this order")
		}
	case AxisPayment:
		if orderStatus.IsClosed() {
			return shared.NewDomainError(CodePaymentNotEligible,
				fmt.Sprintf("Payments cannot change on a %s order", orderStatus))
		}
		if !spec.startsFromPayment(paymentStatus) {
			return illegalPayment(spec, paymentStatus)
		}
		if spec.action == ActionConfirmPayment && paymentStatus == PaymentStatusPending && !pendingConfirm {
			return illegalPayment(spec, paymentStatus)
		}
		if spec.action != ActionConfirmPayment && !paymentStatus.CanTransitionTo(spec.paymentTo) {
			return illegalPayment(spec, paymentStatus)
		}
	}
	return nil
}

// Apply validates req and returns the order as it looks after the
// transition. The input order is not modified.
func (m *Machine) Apply(o *Order, actor Actor, req Request, now time.Time) (*Order, error) {
	if err := m.Check(o, actor, req); err != nil {
		return nil, err
	}
	spec, _ := specFor(req.Action)
	next := o.Clone()
	switch spec.axis {
	case AxisOrder:
		next.OrderStatus = spec.to
	case AxisPayment:
		next.PaymentStatus = spec.paymentTo
	case AxisAmount:
		next.TotalPrice = req.Amount
	case AxisRelation:
		next.Driver = &Ref{ID: req.DriverID}
	}
	next.UpdatedAt = now
	return next, nil
}

// Draft is a new order as entered by its owner
type Draft struct {
	Flavor          Flavor
	ProductID       string
	SupplierID      string
	Quantity        int
	TotalPrice      decimal.Decimal
	PaymentMethod   string
	DeliveryAddress string
	Notes           string
}

// CheckCreate validates that actor may place the draft
func (m *Machine) CheckCreate(actor Actor, d Draft) error {
	switch d.Flavor {
	case FlavorGoods:
		if actor.Role != RoleBuyer && actor.Role != RoleArtisan {
			return shared.NewDomainError(CodeRoleNotAllowed, "Only buyers and artisans can place orders")
		}
		if d.TotalPrice.IsNegative() {
			return shared.NewDomainError(CodeInvalidDraft, "Total price cannot be negative")
		}
	case FlavorSupply:
		if actor.Role != RoleArtisan {
			return shared.NewDomainError(CodeRoleNotAllowed, "Only artisans can order supplies")
		}
		if strings.TrimSpace(d.SupplierID) == "" {
			return shared.NewDomainError(CodeInvalidDraft, "Supplier is required")
		}
		if !d.TotalPrice.IsZero() {
			return shared.NewDomainError(CodeInvalidDraft, "Supply orders are priced when payment is submitted")
		}
	default:
		return shared.NewDomainError(CodeInvalidDraft, fmt.Sprintf("Unknown order type %q", d.Flavor))
	}
	if strings.TrimSpace(d.ProductID) == "" {
		return shared.NewDomainError(CodeInvalidDraft, "Product is required")
	}
	if d.Quantity <= 0 {
		return shared.NewDomainError(CodeInvalidDraft, "Quantity must be positive")
	}
	return nil
}

func illegal(spec actionSpec, from OrderStatus) error {
	return shared.NewDomainError(CodeIllegalTransition,
		fmt.Sprintf("Cannot %s an order that is %s", strings.ToLower(spec.label), from))
}

func illegalPayment(spec actionSpec, from PaymentStatus) error {
	return shared.NewDomainError(CodeIllegalTransition,
		fmt.Sprintf("Cannot %s while payment is %s", strings.ToLower(spec.label), from))
}

func roleNoun(r Role) string {
	if r == "" {
		return "guest"
	}
	return string(r)
}
