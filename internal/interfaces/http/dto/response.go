// Package dto holds the request and response bodies of the reference backend.
package dto

import (
	appshared "github.com/marketplace/orderflow/internal/application/shared"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success     bool                   `json:"success"`
	Message     string                 `json:"message,omitempty"`
	Order       *order.Payload         `json:"order,omitempty"`
	Orders      []order.Payload        `json:"orders,omitempty"`
	Messages    []api.MessagePayload   `json:"messages,omitempty"`
	ChatMessage *api.MessagePayload    `json:"chatMessage,omitempty"`
	Token       string                 `json:"token,omitempty"`
	User        *api.UserPayload       `json:"user,omitempty"`
	Errors      []appshared.FieldError `json:"errors,omitempty"`
}

// NewErrorResponse creates a failure envelope
func NewErrorResponse(message string) Response {
	return Response{Success: false, Message: message}
}

// NewValidationErrorResponse creates a failure envelope listing rejected fields
func NewValidationErrorResponse(message string, details []appshared.FieldError) Response {
	return Response{Success: false, Message: message, Errors: details}
}

// OrderResponse wraps one order
func OrderResponse(o *order.Order) Response {
	p := order.Encode(o)
	return Response{Success: true, Order: &p}
}

// OrdersResponse wraps a list of orders
func OrdersResponse(orders []*order.Order) Response {
	payloads := make([]order.Payload, 0, len(orders))
	for _, o := range orders {
		payloads = append(payloads, order.Encode(o))
	}
	return Response{Success: true, Orders: payloads}
}
