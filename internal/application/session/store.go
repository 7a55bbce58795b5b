package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	appshared "github.com/marketplace/orderflow/internal/application/shared"
	"github.com/marketplace/orderflow/internal/domain/identity"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// ErrUnknownRole is returned when the server signs a user in with a role the
// client does not know
var ErrUnknownRole = shared.NewDomainError("UNKNOWN_ROLE", "The account role is not supported by this client")

// Authenticator exchanges credentials for a token
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, reg api.Registration) (*api.AuthResult, error)
}

// Listener is notified with a snapshot whenever the session changes. A nil
// snapshot means the user signed out.
type Listener func(s *identity.Session)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds the current session. It is the single owner of the token and
// the only place that signs users in or out.
type Store struct {
	mu        sync.RWMutex
	current   *identity.Session
	repo      identity.SessionRepository
	auth      Authenticator
	listeners map[int]Listener
	nextID    int
	logger    *zap.Logger
	now       func() time.Time
}

// NewStore creates a session store backed by repo
func NewStore(repo identity.SessionRepository, authenticator Authenticator, opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		auth:      authenticator,
		listeners: make(map[int]Listener),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate restores the stored session. Expired or unusable sessions are
// cleared and nil is returned.
func (s *Store) Hydrate(ctx context.Context) (*identity.Session, error) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if stored == nil {
		return nil, nil
	}
	if !stored.IsValid(s.now()) {
		s.logger.Info("Discarding stored session",
			zap.String("user_id", stored.UserID),
			zap.Time("expires_at", stored.ExpiresAt))
		if err := s.repo.Clear(ctx); err != nil {
			s.logger.Warn("Failed to clear stale session", zap.Error(err))
		}
		return nil, nil
	}

	s.set(stored.Clone())
	s.logger.Info("Session restored", zap.String("user_id", stored.UserID), zap.String("role", stored.Role.String()))
	return stored.Clone(), nil
}

// Login signs the user in and persists the session
func (s *Store) Login(ctx context.Context, input LoginInput) (*identity.Session, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := appshared.Struct(input); err != nil {
		return nil, err
	}
	s.logger.Info("Login attempt", zap.String("email", input.Email))

	result, err := s.auth.Login(ctx, api.Credentials{Email: input.Email, Password: input.Password})
	if err != nil {
		s.logger.Warn("Login failed", zap.String("email", input.Email), zap.Error(err))
		return nil, err
	}
	return s.establish(ctx, result)
}

// Register creates an account, signs it in and persists the session
func (s *Store) Register(ctx context.Context, input RegisterInput) (*identity.Session, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := appshared.Struct(input); err != nil {
		return nil, err
	}
	role, _ := order.ParseRole(input.Role)
	s.logger.Info("Registration attempt", zap.String("email", input.Email), zap.String("role", role.String()))

	result, err := s.auth.Register(ctx, api.Registration{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     role.String(),
		Phone:    input.Phone,
	})
	if err != nil {
		s.logger.Warn("Registration failed", zap.String("email", input.Email), zap.Error(err))
		return nil, err
	}
	return s.establish(ctx, result)
}

func (s *Store) establish(ctx context.Context, result *api.AuthResult) (*identity.Session, error) {
	sess, err := sessionFromAuth(result)
	if err != nil {
		return nil, err
	}
	if !sess.IsValid(s.now()) {
		return nil, shared.NewDomainError(shared.ErrUnauthorized.Code, "The server issued an expired session")
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		// The session still works for this run.
		s.logger.Warn("Failed to persist session", zap.String("user_id", sess.UserID), zap.Error(err))
	}
	s.set(sess)
	s.logger.Info("User logged in", zap.String("user_id", sess.UserID), zap.String("role", sess.Role.String()))
	return sess.Clone(), nil
}

// sessionFromAuth builds a session from the login response, filling gaps in
// the user payload from the token claims
func sessionFromAuth(result *api.AuthResult) (*identity.Session, error) {
	sess := &identity.Session{
		Token:  result.Token,
		UserID: result.User.UserID(),
		Name:   result.User.Name,
		Email:  result.User.Email,
		Phone:  result.User.Phone,
	}
	rawRole := result.User.Role

	if claims, err := auth.ParseUnverified(result.Token); err == nil {
		sess.ExpiresAt = claims.ExpiresAtTime()
		if sess.UserID == "" {
			sess.UserID = claims.SubjectID()
		}
		if rawRole == "" {
			rawRole = claims.Role
		}
		if sess.Name == "" {
			sess.Name = claims.Name
		}
		if sess.Email == "" {
			sess.Email = claims.Email
		}
	}

	if sess.UserID == "" {
		return nil, shared.NewDomainError(shared.ErrUnauthorized.Code, "The server did not identify the signed-in user")
	}
	role, ok := order.ParseRole(rawRole)
	if !ok {
		return nil, shared.NewDomainError(ErrUnknownRole.Code, fmt.Sprintf("Role %q is not supported by this client", rawRole))
	}
	sess.Role = role
	return sess, nil
}

// Logout forgets the session locally and in storage
func (s *Store) Logout(ctx context.Context) error {
	prev := s.set(nil)
	if prev != nil {
		s.logger.Info("User logged out", zap.String("user_id", prev.UserID))
	}
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// HandleUnauthorized signs the user out after the server rejected the token
func (s *Store) HandleUnauthorized(ctx context.Context) {
	if s.Snapshot() == nil {
		return
	}
	s.logger.Warn("Server rejected the session token, signing out")
	if err := s.Logout(ctx); err != nil {
		s.logger.Error("Failed to clear rejected session", zap.Error(err))
	}
}

// Snapshot returns a copy of the current session, or nil when signed out
func (s *Store) Snapshot() *identity.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Token returns the bearer token, or an empty string when there is no usable
// session
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.IsValid(s.now()) {
		return ""
	}
	return s.current.Token
}

// Actor returns the signed-in user as an order actor
func (s *Store) Actor() (order.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.IsValid(s.now()) {
		return order.Actor{}, shared.ErrSessionRequired
	}
	return s.current.Actor(), nil
}

// Subscribe registers l for session changes and returns a function that
// removes it
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// set replaces the current session and notifies listeners outside the lock
func (s *Store) set(next *identity.Session) *identity.Session {
	s.mu.Lock()
	prev := s.current
	s.current = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if prev == nil && next == nil {
		return nil
	}
	for _, l := range listeners {
		l(next.Clone())
	}
	return prev
}
