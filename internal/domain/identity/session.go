package identity

import (
	"time"

	"github.com/marketplace/orderflow/internal/domain/order"
)

// Session is the signed-in user as remembered between runs
type Session struct {
	Token     string     `json:"token"`
	UserID    string     `json:"userId"`
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Role      order.Role `json:"role"`
	ExpiresAt time.Time  `json:"expiresAt,omitempty"`
}

// Actor returns the session user as an order actor
func (s *Session) Actor() order.Actor {
	return order.Actor{ID: s.UserID, Role: s.Role}
}

// IsExpired reports whether the token has expired at now. Sessions without
// a known expiry never expire locally; the server decides.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// IsValid reports whether the session can be used to make requests at now
func (s *Session) IsValid(now time.Time) bool {
	return s != nil && s.Token != "" && s.UserID != "" && s.Role.IsValid() && !s.IsExpired(now)
}

// Clone returns a copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
