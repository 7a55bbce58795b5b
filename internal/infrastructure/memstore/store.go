// Package memstore is the in-memory data store of the reference backend.
package memstore

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/orderflow/internal/domain/chat"
	"github.com/marketplace/orderflow/internal/domain/order"
	"golang.org/x/crypto/bcrypt"
)

// Store errors
var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const subscriberBuffer = 16

// User is a registered marketplace account
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Role         order.Role
	passwordHash []byte
}

// Ref returns the user as an order relation
func (u *User) Ref() order.Ref {
	return order.Ref{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(s *Store) {
		s.bcryptCost = cost
	}
}

// Store keeps users, products, orders and messages in memory
type Store struct {
	mu       sync.RWMutex
	users    map[string]*User
	byEmail  map[string]string
	products map[string]order.ProductRef
	orders   map[string]*order.Order
	messages map[string][]chat.Message
	subs     map[string]map[int]chan chat.Message
	nextSub  int

	bcryptCost int
	now        func() time.Time
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		users:      make(map[string]*User),
		byEmail:    make(map[string]string),
		products:   make(map[string]order.ProductRef),
		orders:     make(map[string]*order.Order),
		messages:   make(map[string][]chat.Message),
		subs:       make(map[string]map[int]chan chat.Message),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time
func (s *Store) Now() time.Time {
	return s.now()
}

// ============================================
// Users
// ============================================

// CreateUser registers a user. The ID is generated when empty.
func (s *Store) CreateUser(u User, password string) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return nil, ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	u.passwordHash = hash
	s.users[u.ID] = &u
	s.byEmail[email] = u.ID
	c := u
	return &c, nil
}

// Authenticate checks credentials and returns the user
func (s *Store) Authenticate(email, password string) (*User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	var u *User
	if ok {
		u = s.users[id]
	}
	s.mu.RUnlock()
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	c := *u
	return &c, nil
}

// User returns a user by ID
func (s *Store) User(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// ============================================
// Products
// ============================================

// PutProduct adds or replaces a catalog entry
func (s *Store) PutProduct(p order.ProductRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// Product returns a catalog entry. Unknown products come back with the ID only.
func (s *Store) Product(id string) order.ProductRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.products[id]; ok {
		return p
	}
	return order.ProductRef{Ref: order.Ref{ID: id}}
}

// ============================================
// Orders
// ============================================

// InsertOrder stores a new order and returns a copy. The ID and timestamps
// are filled when empty.
func (s *Store) InsertOrder(o *order.Order) *order.Order {
	c := o.Clone()
	now := s.now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[c.ID] = c
	return c.Clone()
}

// Order returns a copy of the order
func (s *Store) Order(id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

// Orders returns copies of the orders accepted by keep, newest first
func (s *Store) Orders(keep func(*order.Order) bool) []*order.Order {
	s.mu.RLock()
	out := make([]*order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep == nil || keep(o) {
			out = append(out, o.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// UpdateOrder runs mutate on the current order under the write lock and
// stores its result. Concurrent updates are serialized, so two conflicting
// transitions can never both succeed.
func (s *Store) UpdateOrder(id string, mutate func(current *order.Order) (*order.Order, error)) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	next, err := mutate(current.Clone())
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.orders[id] = next.Clone()
	return next, nil
}

// ============================================
// Messages
// ============================================

// Messages returns the conversation between a and b in send order
func (s *Store) Messages(a, b string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[chat.ConversationKey(a, b)]
	return append([]chat.Message(nil), msgs...)
}

// AppendMessage stores a message and fans it out to the conversation's
// subscribers. Slow subscribers miss messages rather than block senders.
func (s *Store) AppendMessage(m chat.Message) chat.Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SentAt.IsZero() {
		m.SentAt = s.now()
	}
	m.Pending = false
	key := chat.ConversationKey(m.From, m.To)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[key] = append(s.messages[key], m)
	for _, ch := range s.subs[key] {
		select {
		case ch <- m:
		default:
		}
	}
	return m
}

// Subscribe streams new messages of the conversation between a and b until
// the returned cancel function is called
func (s *Store) Subscribe(a, b string) (<-chan chat.Message, func()) {
	key := chat.ConversationKey(a, b)
	ch := make(chan chat.Message, subscriberBuffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]chan chat.Message)
	}
	s.subs[key][id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[key], id)
			if len(s.subs[key]) == 0 {
				delete(s.subs, key)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}
