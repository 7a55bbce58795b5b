package identity

import (
	"testing"
	"time"

	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/stretchr/testify/assert"
)

func TestSession_IsValid(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := Session{Token: "tok", UserID: "u-1", Role: order.RoleBuyer}

	tests := []struct {
		name   string
		mutate func(s *Session)
		want   bool
	}{
		{"complete", func(s *Session) {}, true},
		{"no expiry", func(s *Session) { s.ExpiresAt = time.Time{} }, true},
		{"future expiry", func(s *Session) { s.ExpiresAt = now.Add(time.Minute) }, true},
		{"expired", func(s *Session) { s.ExpiresAt = now.Add(-time.Minute) }, false},
		{"expires exactly now", func(s *Session) { s.ExpiresAt = now }, false},
		{"no token", func(s *Session) { s.Token = "" }, false},
		{"no user", func(s *Session) { s.UserID = "" }, false},
		{"unknown role", func(s *Session) { s.Role = "wizard" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			assert.Equal(t, tt.want, s.IsValid(now))
		})
	}

	var nilSession *Session
	assert.False(t, nilSession.IsValid(now))
}

func TestSession_ActorAndClone(t *testing.T) {
	s := &Session{Token: "tok", UserID: "u-1", Role: order.RoleDriver}
	assert.Equal(t, order.Actor{ID: "u-1", Role: order.RoleDriver}, s.Actor())

	c := s.Clone()
	c.Token = "other"
	assert.Equal(t, "tok", s.Token)

	var nilSession *Session
	assert.Nil(t, nilSession.Clone())
}
