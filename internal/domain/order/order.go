package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// FallbackName is shown for relations whose display fields are unavailable
	FallbackName = "N/A"
	// FallbackProductName is shown for products without a name
	FallbackProductName = "Unnamed Product"
)

// Ref is a relation to another entity. Name is empty when the server only
// sent the identifier.
type Ref struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// IsZero reports whether the relation is absent
func (r Ref) IsZero() bool {
	return r.ID == "" && r.Name == ""
}

// DisplayName returns the name or the generic fallback
func (r Ref) DisplayName() string {
	if r.Name == "" {
		return FallbackName
	}
	return r.Name
}

// ProductRef is the ordered product or inventory item
type ProductRef struct {
	Ref
	UnitPrice decimal.Decimal
}

// DisplayName returns the product name or the product fallback
func (p ProductRef) DisplayName() string {
	if p.Name == "" {
		return FallbackProductName
	}
	return p.Name
}

// Order is the client's cached copy of a server-owned order
type Order struct {
	ID              string
	Flavor          Flavor
	Product         ProductRef
	Buyer           Ref
	Supplier        *Ref
	Artisan         *Ref
	Driver          *Ref
	Quantity        int
	TotalPrice      decimal.Decimal
	OrderStatus     OrderStatus
	PaymentStatus   PaymentStatus
	PaymentMethod   string
	PaymentCode     string
	DeliveryAddress string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Problems lists the fields that could not be normalized. Such orders can
	// be displayed but not mutated.
	Problems []string
}

// IsComplete reports whether the order carries everything needed for a mutation
func (o *Order) IsComplete() bool {
	return len(o.Problems) == 0
}

// Owner returns the party that placed the order
func (o *Order) Owner() Ref {
	if o.Flavor == FlavorSupply && o.Artisan != nil && o.Artisan.ID != "" {
		return *o.Artisan
	}
	return o.Buyer
}

// IsOwnedBy reports whether userID placed the order
func (o *Order) IsOwnedBy(userID string) bool {
	return userID != "" && o.Owner().ID == userID
}

// IsAssignedTo reports whether userID is the assigned driver
func (o *Order) IsAssignedTo(userID string) bool {
	return userID != "" && o.Driver != nil && o.Driver.ID == userID
}

// IsTerminal reports whether the order status has no further edge
func (o *Order) IsTerminal() bool {
	return o.Flavor.IsTerminal(o.OrderStatus)
}

// IsFinalized reports whether the order completed its lifecycle successfully
func (o *Order) IsFinalized() bool {
	return o.OrderStatus == o.Flavor.FinalStatus()
}

// HasOutstandingPayment reports whether a payment amount was submitted and
// is still awaiting a decision
func (o *Order) HasOutstandingPayment() bool {
	return o.PaymentStatus == PaymentStatusPending && o.TotalPrice.GreaterThan(decimal.Zero)
}

// SupplierName returns the supplier display name
func (o *Order) SupplierName() string {
	if o.Supplier == nil {
		return FallbackName
	}
	return o.Supplier.DisplayName()
}

// ArtisanName returns the artisan display name
func (o *Order) ArtisanName() string {
	if o.Artisan == nil {
		return FallbackName
	}
	return o.Artisan.DisplayName()
}

// DriverName returns the driver display name
func (o *Order) DriverName() string {
	if o.Driver == nil {
		return FallbackName
	}
	return o.Driver.DisplayName()
}

// Clone returns a deep copy so callers can never mutate cached state
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Supplier = cloneRef(o.Supplier)
	c.Artisan = cloneRef(o.Artisan)
	c.Driver = cloneRef(o.Driver)
	if o.Problems != nil {
		c.Problems = append([]string(nil), o.Problems...)
	}
	return &c
}

func cloneRef(r *Ref) *Ref {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
