package api

import (
	"context"
	"net/http"
)

// Credentials is the body of POST /auth/login
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /auth/register
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
}

// UserPayload is a user as sent by the backend
type UserPayload struct {
	ID    string `json:"_id,omitempty"`
	AltID string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// UserID returns whichever identifier field the backend filled
func (u UserPayload) UserID() string {
	if u.ID != "" {
		return u.ID
	}
	return u.AltID
}

// AuthResult is a successful login or registration
type AuthResult struct {
	Token string
	User  UserPayload
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Register creates an account and signs it in
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*AuthResult, error) {
	env, err := c.call(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Anonymous: true})
	if err != nil {
		return nil, err
	}
	if env.Token == "" {
		return nil, &Error{Kind: KindServer, StatusCode: http.StatusOK, Message: "response carries no token"}
	}
	result := &AuthResult{Token: env.Token}
	if env.User != nil {
		result.User = *env.User
	}
	return result, nil
}
