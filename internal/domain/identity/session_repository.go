package identity

import "context"

// SessionRepository persists the current session
type SessionRepository interface {
	// Load returns the stored session, or nil when none is stored
	Load(ctx context.Context) (*Session, error)

	// Save replaces the stored session
	Save(ctx context.Context, s *Session) error

	// Clear removes the stored session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
