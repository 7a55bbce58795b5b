package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/marketplace/orderflow/internal/domain/identity"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSessionRepository is a mock implementation of identity.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Load(ctx context.Context) (*identity.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, s *identity.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AuthResult), args.Error(1)
}

func (m *MockAuthenticator) Register(ctx context.Context, reg api.Registration) (*api.AuthResult, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AuthResult), args.Error(1)
}

var testNow = time.Now().Truncate(time.Second)

func issueToken(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, err := auth.NewJWTService("session-test-secret-0123456789", time.Hour, "test").Generate(id)
	require.NoError(t, err)
	return token
}

func newTestStore(repo *MockSessionRepository, authn *MockAuthenticator) *Store {
	return NewStore(repo, authn, WithClock(func() time.Time { return testNow }))
}

func TestStore_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success persists and exposes the session", func(t *testing.T) {
		repo := new(MockSessionRepository)
		authn := new(MockAuthenticator)
		token := issueToken(t, auth.Identity{UserID: "u-1", Role: "supplier"})

		authn.On("Login", ctx, api.Credentials{Email: "clay@example.com", Password: "secret1"}).
			Return(&api.AuthResult{Token: token, User: api.UserPayload{ID: "u-1", Name: "Clay Co", Role: "Supplier"}}, nil)
		repo.On("Save", ctx, mock.MatchedBy(func(s *identity.Session) bool {
			return s.UserID == "u-1" && s.Role == order.RoleSupplier && s.Token == token
		})).Return(nil)

		store := newTestStore(repo, authn)
		sess, err := store.Login(ctx, LoginInput{Email: " clay@example.com ", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "Clay Co", sess.Name)
		assert.False(t, sess.ExpiresAt.IsZero())
		assert.Equal(t, token, store.Token())

		actor, err := store.Actor()
		require.NoError(t, err)
		assert.Equal(t, order.Actor{ID: "u-1", Role: order.RoleSupplier}, actor)
		repo.AssertExpectations(t)
	})

	t.Run("invalid input never reaches the server", func(t *testing.T) {
		repo := new(MockSessionRepository)
		authn := new(MockAuthenticator)
		store := newTestStore(repo, authn)

		_, err := store.Login(ctx, LoginInput{Email: "not-an-email", Password: "123"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		authn.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("server rejection is surfaced", func(t *testing.T) {
		repo := new(MockSessionRepository)
		authn := new(MockAuthenticator)
		rejected := &api.Error{Kind: api.KindUnauthorized, StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
		authn.On("Login", ctx, mock.Anything).Return(nil, rejected)

		store := newTestStore(repo, authn)
		_, err := store.Login(ctx, LoginInput{Email: "a@example.com", Password: "secret1"})
		assert.True(t, api.IsKind(err, api.KindUnauthorized))
		assert.Nil(t, store.Snapshot())
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("role and id fall back to token claims", func(t *testing.T) {
		repo := new(MockSessionRepository)
		authn := new(MockAuthenticator)
		token := issueToken(t, auth.Identity{UserID: "u-9", Role: "delivery", Name: "Dawit"})
		authn.On("Login", ctx, mock.Anything).Return(&api.AuthResult{Token: token}, nil)
		repo.On("Save", ctx, mock.Anything).Return(nil)

		store := newTestStore(repo, authn)
		sess, err := store.Login(ctx, LoginInput{Email: "d@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "u-9", sess.UserID)
		assert.Equal(t, order.RoleDriver, sess.Role)
		assert.Equal(t, "Dawit", sess.Name)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		repo := new(MockSessionRepository)
		authn := new(MockAuthenticator)
		authn.On("Login", ctx, mock.Anything).
			Return(&api.AuthResult{Token: "opaque", User: api.UserPayload{ID: "u-2", Role: "wizard"}}, nil)

		store := newTestStore(repo, authn)
		_, err := store.Login(ctx, LoginInput{Email: "w@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrUnknownRole)
		assert.Empty(t, store.Token())
	})

	t.Run("opaque token without expiry is accepted", func(t *testing.T) {
		repo := new(MockSessionRepository)
		authn := new(MockAuthenticator)
		authn.On("Login", ctx, mock.Anything).
			Return(&api.AuthResult{Token: "opaque", User: api.UserPayload{AltID: "u-3", Role: "customer"}}, nil)
		repo.On("Save", ctx, mock.Anything).Return(nil)

		store := newTestStore(repo, authn)
		sess, err := store.Login(ctx, LoginInput{Email: "b@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, order.RoleBuyer, sess.Role)
		assert.True(t, sess.ExpiresAt.IsZero())
		assert.Equal(t, "opaque", store.Token())
	})

	t.Run("storage failure keeps the in-memory session", func(t *testing.T) {
		repo := new(MockSessionRepository)
		authn := new(MockAuthenticator)
		authn.On("Login", ctx, mock.Anything).
			Return(&api.AuthResult{Token: "opaque", User: api.UserPayload{ID: "u-4", Role: "finance"}}, nil)
		repo.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))

		store := newTestStore(repo, authn)
		_, err := store.Login(ctx, LoginInput{Email: "f@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "opaque", store.Token())
	})
}

func TestStore_Register(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSessionRepository)
	authn := new(MockAuthenticator)

	authn.On("Register", ctx, api.Registration{
		Name: "Abebe", Email: "abebe@example.com", Password: "secret1", Role: "buyer", Phone: "+251911000000",
	}).Return(&api.AuthResult{Token: "opaque", User: api.UserPayload{ID: "u-5", Name: "Abebe", Role: "buyer"}}, nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)

	store := newTestStore(repo, authn)
	sess, err := store.Register(ctx, RegisterInput{
		Name: "Abebe", Email: "abebe@example.com", Password: "secret1", Role: "Customer", Phone: "+251911000000",
	})
	require.NoError(t, err)
	assert.Equal(t, order.RoleBuyer, sess.Role)
	authn.AssertExpectations(t)

	_, err = store.Register(ctx, RegisterInput{Name: "X", Email: "x@example.com", Password: "secret1", Role: "wizard"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestStore_Hydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("restores a valid session", func(t *testing.T) {
		repo := new(MockSessionRepository)
		stored := &identity.Session{Token: "tok", UserID: "u-1", Role: order.RoleArtisan, ExpiresAt: testNow.Add(time.Hour)}
		repo.On("Load", ctx).Return(stored, nil)

		store := newTestStore(repo, new(MockAuthenticator))
		sess, err := store.Hydrate(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, "tok", store.Token())
	})

	t.Run("clears an expired session", func(t *testing.T) {
		repo := new(MockSessionRepository)
		stored := &identity.Session{Token: "tok", UserID: "u-1", Role: order.RoleArtisan, ExpiresAt: testNow.Add(-time.Minute)}
		repo.On("Load", ctx).Return(stored, nil)
		repo.On("Clear", ctx).Return(nil)

		store := newTestStore(repo, new(MockAuthenticator))
		sess, err := store.Hydrate(ctx)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Empty(t, store.Token())
		repo.AssertCalled(t, "Clear", ctx)
	})

	t.Run("nothing stored", func(t *testing.T) {
		repo := new(MockSessionRepository)
		repo.On("Load", ctx).Return(nil, nil)

		store := newTestStore(repo, new(MockAuthenticator))
		sess, err := store.Hydrate(ctx)
		require.NoError(t, err)
		assert.Nil(t, sess)
		_, err = store.Actor()
		assert.ErrorIs(t, err, shared.ErrSessionRequired)
	})

	t.Run("load failure", func(t *testing.T) {
		repo := new(MockSessionRepository)
		repo.On("Load", ctx).Return(nil, errors.New("corrupt"))

		_, err := newTestStore(repo, new(MockAuthenticator)).Hydrate(ctx)
		assert.Error(t, err)
	})
}

func TestStore_LogoutAndSubscribe(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSessionRepository)
	stored := &identity.Session{Token: "tok", UserID: "u-1", Role: order.RoleBuyer}
	repo.On("Load", ctx).Return(stored, nil)
	repo.On("Clear", ctx).Return(nil)

	store := newTestStore(repo, new(MockAuthenticator))

	var (
		mu     sync.Mutex
		events []*identity.Session
	)
	unsubscribe := store.Subscribe(func(s *identity.Session) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	})

	_, err := store.Hydrate(ctx)
	require.NoError(t, err)

	store.HandleUnauthorized(ctx)
	assert.Nil(t, store.Snapshot())
	assert.Empty(t, store.Token())

	// A second rejection has nothing to sign out.
	store.HandleUnauthorized(ctx)

	unsubscribe()
	require.NoError(t, store.Logout(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, "u-1", events[0].UserID)
	assert.Nil(t, events[1])
	repo.AssertNumberOfCalls(t, "Clear", 2)
}
