package order

// Action is a user-triggerable operation on an existing order
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionProcess        Action = "process"
	ActionShip           Action = "ship"
	ActionMarkDelivered  Action = "mark_delivered"
	ActionMarkReceived   Action = "mark_received"
	ActionComplete       Action = "complete"
	ActionSubmitPayment  Action = "submit_payment"
	ActionApprovePayment Action = "approve_payment"
	ActionRejectPayment  Action = "reject_payment"
	ActionMarkPaid       Action = "mark_paid"
	ActionConfirmPayment Action = "confirm_payment"
	ActionAssignDriver   Action = "assign_driver"
)

// ParseAction normalizes an action name
func ParseAction(raw string) (Action, bool) {
	a := Action(normalizeToken(raw))
	_, ok := specFor(a)
	return a, ok
}

// String returns the string representation of Action
func (a Action) String() string {
	return string(a)
}

// Axis is the part of the order an action changes
type Axis string

const (
	AxisOrder    Axis = "order"
	AxisPayment  Axis = "payment"
	AxisAmount   Axis = "amount"
	AxisRelation Axis = "relation"
)

// actionSpec describes one edge of the lifecycle and who may trigger it.
// For payment actions From/To are unused and PaymentFrom/PaymentTo apply.
type actionSpec struct {
	action      Action
	axis        Axis
	label       string
	from        []OrderStatus
	to          OrderStatus
	paymentFrom []PaymentStatus
	paymentTo   PaymentStatus
	flavors     []Flavor
	roles       []Role
}

var bothFlavors = []Flavor{FlavorGoods, FlavorSupply}

// actionTable is ordered the way permitted actions are presented
var actionTable = []actionSpec{
	{
		action:  ActionApprove,
		axis:    AxisOrder,
		label:   "Approve order",
		from:    []OrderStatus{OrderStatusPending},
		to:      OrderStatusApproved,
		flavors: bothFlavors,
		roles:   []Role{RoleSupplier, RoleAdmin},
	},
	{
		action:  ActionReject,
		axis:    AxisOrder,
		label:   "Reject order",
		from:    []OrderStatus{OrderStatusPending},
		to:      OrderStatusRejected,
		flavors: bothFlavors,
		roles:   []Role{RoleSupplier, RoleAdmin},
	},
	{
		action:  ActionProcess,
		axis:    AxisOrder,
		label:   "Start processing",
		from:    []OrderStatus{OrderStatusApproved},
		to:      OrderStatusProcessing,
		flavors: bothFlavors,
		roles:   []Role{RoleSupplier, RoleAdmin},
	},
	{
		action:  ActionShip,
		axis:    AxisOrder,
		label:   "Mark shipped",
		from:    []OrderStatus{OrderStatusProcessing},
		to:      OrderStatusShipped,
		flavors: bothFlavors,
		roles:   []Role{RoleSupplier, RoleAdmin},
	},
	{
		action:  ActionAssignDriver,
		axis:    AxisRelation,
		label:   "Assign driver",
		from:    []OrderStatus{OrderStatusApproved, OrderStatusProcessing, OrderStatusShipped},
		flavors: bothFlavors,
		roles:   []Role{RoleSupervisor, RoleAdmin},
	},
	{
		action:  ActionMarkDelivered,
		axis:    AxisOrder,
		label:   "Mark delivered",
		from:    []OrderStatus{OrderStatusShipped},
		to:      OrderStatusDelivered,
		flavors: bothFlavors,
		roles:   []Role{RoleSupplier, RoleAdmin, RoleDriver},
	},
	{
		action:  ActionMarkReceived,
		axis:    AxisOrder,
		label:   "Confirm receipt",
		from:    []OrderStatus{OrderStatusDelivered},
		to:      OrderStatusReceived,
		flavors: bothFlavors,
		roles:   []Role{RoleBuyer, RoleArtisan},
	},
	{
		action:  ActionComplete,
		axis:    AxisOrder,
		label:   "Mark completed",
		from:    []OrderStatus{OrderStatusReceived},
		to:      OrderStatusCompleted,
		flavors: []Flavor{FlavorSupply},
		roles:   []Role{RoleSupervisor, RoleAdmin},
	},
	{
		action:      ActionSubmitPayment,
		axis:        AxisAmount,
		label:       "Submit payment amount",
		from:        []OrderStatus{OrderStatusDelivered, OrderStatusReceived, OrderStatusCompleted},
		paymentFrom: []PaymentStatus{PaymentStatusPending},
		paymentTo:   PaymentStatusPending,
		flavors:     []Flavor{FlavorSupply},
		roles:       []Role{RoleSupplier, RoleAdmin},
	},
	{
		action:      ActionApprovePayment,
		axis:        AxisPayment,
		label:       "Approve payment",
		paymentFrom: []PaymentStatus{PaymentStatusPending},
		paymentTo:   PaymentStatusApproved,
		flavors:     bothFlavors,
		roles:       []Role{RoleFinance},
	},
	{
		action:      ActionRejectPayment,
		axis:        AxisPayment,
		label:       "Reject payment",
		paymentFrom: []PaymentStatus{PaymentStatusPending},
		paymentTo:   PaymentStatusRejected,
		flavors:     bothFlavors,
		roles:       []Role{RoleFinance},
	},
	{
		action:      ActionMarkPaid,
		axis:        AxisPayment,
		label:       "Mark paid",
		paymentFrom: []PaymentStatus{PaymentStatusApproved},
		paymentTo:   PaymentStatusPaid,
		flavors:     bothFlavors,
		roles:       []Role{RoleFinance},
	},
	{
		action:      ActionConfirmPayment,
		axis:        AxisPayment,
		label:       "Confirm payment received",
		paymentFrom: []PaymentStatus{PaymentStatusApproved, PaymentStatusPending},
		paymentTo:   PaymentStatusPaid,
		flavors:     []Flavor{FlavorSupply},
		roles:       []Role{RoleSupervisor, RoleAdmin},
	},
}

// AxisOf returns the part of the order action changes
func AxisOf(a Action) (Axis, bool) {
	spec, ok := specFor(a)
	return spec.axis, ok
}

func specFor(a Action) (actionSpec, bool) {
	for _, s := range actionTable {
		if s.action == a {
			return s, true
		}
	}
	return actionSpec{}, false
}

func (s actionSpec) allowsRole(r Role) bool {
	for _, allowed := range s.roles {
		if allowed == r {
			return true
		}
	}
	return false
}

func (s actionSpec) allowsFlavor(f Flavor) bool {
	for _, allowed := range s.flavors {
		if allowed == f {
			return true
		}
	}
	return false
}

func (s actionSpec) startsFrom(status OrderStatus) bool {
	for _, from := range s.from {
		if from == status {
			return true
		}
	}
	return false
}

func (s actionSpec) startsFromPayment(status PaymentStatus) bool {
	for _, from := range s.paymentFrom {
		if from == status {
			return true
		}
	}
	return false
}

// ActionsToStatus lists the actions that move an order to status
func ActionsToStatus(status OrderStatus) []Action {
	var out []Action
	for _, s := range actionTable {
		if s.axis == AxisOrder && s.to == status {
			out = append(out, s.action)
		}
	}
	return out
}

// ActionsToPayment lists the actions that move a payment to status
func ActionsToPayment(status PaymentStatus) []Action {
	var out []Action
	for _, s := range actionTable {
		if s.axis == AxisPayment && s.paymentTo == status {
			out = append(out, s.action)
		}
	}
	return out
}
