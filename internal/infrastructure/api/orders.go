package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/shopspring/decimal"
)

// ListFilter narrows GET /orders. Zero fields are omitted.
type ListFilter struct {
	Role   order.Role
	Status order.OrderStatus
	Flavor order.Flavor
}

func (f ListFilter) query() url.Values {
	q := url.Values{}
	if f.Role != "" {
		q.Set("role", f.Role.String())
	}
	if f.Status != "" {
		q.Set("status", f.Status.String())
	}
	if f.Flavor != "" {
		q.Set("orderType", f.Flavor.String())
	}
	return q
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	OrderType       string          `json:"orderType"`
	Product         string          `json:"product,omitempty"`
	Item            string          `json:"item,omitempty"`
	Supplier        string          `json:"supplier,omitempty"`
	Quantity        int             `json:"quantity"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	DeliveryAddress string          `json:"deliveryAddress,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// ListOrders fetches the orders visible to the session
func (c *Client) ListOrders(ctx context.Context, filter ListFilter) ([]order.Payload, error) {
	env, err := c.call(ctx, Request{Method: http.MethodGet, Path: "/orders", Query: filter.query()})
	if err != nil {
		return nil, err
	}
	if env.Orders == nil {
		return []order.Payload{}, nil
	}
	return env.Orders, nil
}

// GetOrder fetches one order. A nil payload without error means the server
// answered but did not include the order.
func (c *Client) GetOrder(ctx context.Context, id string) (*order.Payload, error) {
	env, err := c.call(ctx, Request{Method: http.MethodGet, Path: "/orders/" + id})
	if err != nil {
		return nil, err
	}
	return env.Order, nil
}

// CreateOrder places a new order
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*order.Payload, error) {
	env, err := c.call(ctx, Request{Method: http.MethodPost, Path: "/orders", Body: req})
	if err != nil {
		return nil, err
	}
	return env.Order, nil
}

// UpdateOrderStatus moves the order along its status graph. Goods orders
// name the field orderStatus, inventory orders status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, flavor order.Flavor, status order.OrderStatus) (*order.Payload, error) {
	field := "orderStatus"
	if flavor == order.FlavorSupply {
		field = "status"
	}
	env, err := c.call(ctx, Request{
		Method: http.MethodPatch,
		Path:   "/orders/" + id + "/status",
		Body:   map[string]string{field: status.String()},
	})
	if err != nil {
		return nil, err
	}
	return env.Order, nil
}

// UpdatePaymentStatus moves the order along the payment graph
func (c *Client) UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus) (*order.Payload, error) {
	env, err := c.call(ctx, Request{
		Method: http.MethodPatch,
		Path:   "/orders/" + id + "/payment-status",
		Body:   map[string]string{"paymentStatus": status.String()},
	})
	if err != nil {
		return nil, err
	}
	return env.Order, nil
}

// SubmitPayment records the amount owed for a delivered inventory order
func (c *Client) SubmitPayment(ctx context.Context, id string, amount decimal.Decimal) (*order.Payload, error) {
	env, err := c.call(ctx, Request{
		Method: http.MethodPost,
		Path:   "/orders/" + id + "/payment",
		Body:   map[string]decimal.Decimal{"amount": amount},
	})
	if err != nil {
		return nil, err
	}
	return env.Order, nil
}

// AssignDriver assigns a delivery driver to the order
func (c *Client) AssignDriver(ctx context.Context, id, driverID string) (*order.Payload, error) {
	env, err := c.call(ctx, Request{
		Method: http.MethodPatch,
		Path:   "/orders/" + id + "/driver",
		Body:   map[string]string{"driverId": driverID},
	})
	if err != nil {
		return nil, err
	}
	return env.Order, nil
}
