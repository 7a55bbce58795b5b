package order

// Flavor distinguishes customer goods purchases from artisan-to-supplier
// inventory requests. The two flavors share a shape but not a lifecycle.
type Flavor string

const (
	FlavorGoods  Flavor = "goods"
	FlavorSupply Flavor = "supply"
)

// ParseFlavor normalizes a server-provided order type
func ParseFlavor(raw string) (Flavor, bool) {
	switch normalizeToken(raw) {
	case "goods", "goods_order", "product", "customer":
		return FlavorGoods, true
	case "supply", "supply_order", "inventory", "inventory_order":
		return FlavorSupply, true
	}
	return "", false
}

// IsValid checks if the flavor is known
func (f Flavor) IsValid() bool {
	return f == FlavorGoods || f == FlavorSupply
}

// String returns the string representation of Flavor
func (f Flavor) String() string {
	return string(f)
}

// CanAdvance checks the order-status graph of the flavor.
//
// goods:  pending -> {approved, rejected}, approved -> processing -> shipped -> delivered -> received
// supply: the goods graph plus received -> completed
func (f Flavor) CanAdvance(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusApproved || to == OrderStatusRejected
	case OrderStatusApproved:
		return to == OrderStatusProcessing
	case OrderStatusProcessing:
		return to == OrderStatusShipped
	case OrderStatusShipped:
		return to == OrderStatusDelivered
	case OrderStatusDelivered:
		return to == OrderStatusReceived
	case OrderStatusReceived:
		switch f {
		case FlavorGoods:
			return false
		case FlavorSupply:
			return to == OrderStatusCompleted
		}
	}
	return false
}

// IsTerminal reports whether the flavor's graph has no edge out of status
func (f Flavor) IsTerminal(status OrderStatus) bool {
	switch status {
	case OrderStatusRejected, OrderStatusCancelled:
		return true
	case OrderStatusReceived:
		return f == FlavorGoods
	case OrderStatusCompleted:
		return f == FlavorSupply
	}
	return false
}

// FinalStatus is the status a successfully fulfilled order ends in
func (f Flavor) FinalStatus() OrderStatus {
	switch f {
	case FlavorSupply:
		return OrderStatusCompleted
	default:
		return OrderStatusReceived
	}
}
