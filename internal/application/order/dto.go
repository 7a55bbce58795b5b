package order

import (
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/shopspring/decimal"
)

// ListFilter narrows the order list. Zero fields are omitted.
type ListFilter struct {
	Status string `json:"status" validate:"omitempty,max=32"`
	Flavor string `json:"orderType" validate:"omitempty,oneof=goods supply inventory"`
}

// CreateOrderInput contains the input for placing an order
type CreateOrderInput struct {
	Flavor          string          `json:"orderType" validate:"required,oneof=goods supply inventory"`
	ProductID       string          `json:"productId" validate:"required"`
	SupplierID      string          `json:"supplierId"`
	Quantity        int             `json:"quantity" validate:"gt=0"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PaymentMethod   string          `json:"paymentMethod" validate:"omitempty,max=64"`
	DeliveryAddress string          `json:"deliveryAddress" validate:"omitempty,max=500"`
	Notes           string          `json:"notes" validate:"omitempty,max=1000"`
}

// ActionParams carries the arguments of actions that need input
type ActionParams struct {
	Amount   decimal.Decimal
	DriverID string
}

// OrderActions is an order together with what the actor may do with it
type OrderActions struct {
	Order   *order.Order
	Actions []order.PermittedAction
}
