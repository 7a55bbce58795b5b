package sessionstore

import (
	"context"
	"sync"

	"github.com/marketplace/orderflow/internal/domain/identity"
)

// MemoryStore keeps the session for the lifetime of the process only
type MemoryStore struct {
	mu   sync.RWMutex
	sess *identity.Session
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the held session
func (s *MemoryStore) Load(_ context.Context) (*identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Clone(), nil
}

// Save replaces the held session
func (s *MemoryStore) Save(_ context.Context, sess *identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess.Clone()
	return nil
}

// Clear drops the held session
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	return nil
}

var _ identity.SessionRepository = (*MemoryStore)(nil)
