package dto

import "github.com/shopspring/decimal"

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
	Phone    string `json:"phone" binding:"omitempty,max=30"`
}

// ListOrdersQuery is the query of GET /orders
type ListOrdersQuery struct {
	Role      string `form:"role"`
	Status    string `form:"status"`
	OrderType string `form:"orderType"`
}

// CreateOrderRequest is the body of POST /orders. Supply orders name the
// ordered entry item, goods orders product.
type CreateOrderRequest struct {
	OrderType       string          `json:"orderType" binding:"required"`
	Product         string          `json:"product"`
	Item            string          `json:"item"`
	Supplier        string          `json:"supplier"`
	Quantity        int             `json:"quantity" binding:"required,gt=0"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PaymentMethod   string          `json:"paymentMethod" binding:"omitempty,max=50"`
	DeliveryAddress string          `json:"deliveryAddress" binding:"omitempty,max=500"`
	Notes           string          `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateStatusRequest is the body of PATCH /orders/:id/status. Goods orders
// send orderStatus, inventory orders status.
type UpdateStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
	Status      string `json:"status"`
}

// UpdatePaymentStatusRequest is the body of PATCH /orders/:id/payment-status
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
}

// SubmitPaymentRequest is the body of POST /orders/:id/payment
type SubmitPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AssignDriverRequest is the body of PATCH /orders/:id/driver
type AssignDriverRequest struct {
	DriverID string `json:"driverId" binding:"required"`
}

// SendMessageRequest is the body of POST /chat/:peer/messages
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
