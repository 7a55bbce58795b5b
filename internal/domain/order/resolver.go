package order

// PermittedAction is an action the actor may trigger right now, with the
// state the order moves to when it succeeds
type PermittedAction struct {
	Action              Action
	Axis                Axis
	Label               string
	TargetOrderStatus   OrderStatus
	TargetPaymentStatus PaymentStatus
	// NeedsInput is true when the action requires an argument (amount, driver)
	NeedsInput bool
}

// Resolver computes the actions available to an actor on an order. It only
// looks at the order's statuses, flavor and relations and the actor's role
// and identity, so every screen shows the same actions for the same order.
type Resolver struct {
	machine *Machine
}

// NewResolver creates a resolver backed by machine
func NewResolver(machine *Machine) *Resolver {
	return &Resolver{machine: machine}
}

// Resolve returns the permitted actions in presentation order
func (r *Resolver) Resolve(o *Order, actor Actor) []PermittedAction {
	actions := make([]PermittedAction, 0, 4)
	if o == nil {
		return actions
	}
	for _, spec := range actionTable {
		if !spec.allowsRole(actor.Role) || !spec.allowsFlavor(o.Flavor) {
			continue
		}
		if r.machine.check(o, actor, Request{Action: spec.action}, true) != nil {
			continue
		}
		pa := PermittedAction{
			Action:              spec.action,
			Axis:                spec.axis,
			Label:               spec.label,
			TargetOrderStatus:   o.OrderStatus,
			TargetPaymentStatus: o.PaymentStatus,
			NeedsInput:          spec.axis == AxisAmount || spec.axis == AxisRelation,
		}
		switch spec.axis {
		case AxisOrder:
			pa.TargetOrderStatus = spec.to
		case AxisPayment:
			pa.TargetPaymentStatus = spec.paymentTo
		}
		actions = append(actions, pa)
	}
	return actions
}

// allows reports whether action is among the permitted actions
func (r *Resolver) allows(o *Order, actor Actor, action Action) bool {
	for _, pa := range r.Resolve(o, actor) {
		if pa.Action == action {
			return true
		}
	}
	return false
}
