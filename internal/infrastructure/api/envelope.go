package api

import (
	"context"
	"encoding/json"

	"github.com/marketplace/orderflow/internal/domain/order"
)

// envelope is the response body shape shared by all endpoints. Success may
// be omitted by older endpoints; a missing flag on a 2xx answer is success.
type envelope struct {
	Success  *bool            `json:"success,omitempty"`
	Message  string           `json:"message,omitempty"`
	Order    *order.Payload   `json:"order,omitempty"`
	Orders   []order.Payload  `json:"orders,omitempty"`
	Messages []MessagePayload `json:"messages,omitempty"`
	Chat     *MessagePayload  `json:"chatMessage,omitempty"`
	Token    string           `json:"token,omitempty"`
	User     *UserPayload     `json:"user,omitempty"`
}

// call sends req and decodes the envelope. A 2xx answer with success=false
// is reported as a validation error.
func (c *Client) call(ctx context.Context, req Request) (*envelope, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var env envelope
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return nil, &Error{
				Kind:       KindServer,
				StatusCode: resp.StatusCode,
				Message:    "malformed response body",
				RequestID:  resp.RequestID,
				cause:      err,
			}
		}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request was not accepted"
		}
		return nil, &Error{
			Kind:       KindValidation,
			StatusCode: resp.StatusCode,
			Message:    msg,
			RequestID:  resp.RequestID,
		}
	}
	return &env, nil
}
