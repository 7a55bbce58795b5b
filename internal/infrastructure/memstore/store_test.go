package memstore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marketplace/orderflow/internal/domain/chat"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return New(WithBcryptCost(bcrypt.MinCost), WithClock(func() time.Time { return fixedNow }))
}

func TestStore_Users(t *testing.T) {
	s := newTestStore()

	u, err := s.CreateUser(User{Name: "Hana", Email: " Hana@Example.com ", Role: order.RoleBuyer}, "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "hana@example.com", u.Email)

	_, err = s.CreateUser(User{Name: "Other", Email: "hana@example.com"}, "secret2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := s.Authenticate("HANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate("hana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate("nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.User("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Orders(t *testing.T) {
	s := newTestStore()

	first := s.InsertOrder(&order.Order{Flavor: order.FlavorGoods, CreatedAt: fixedNow.Add(-time.Hour)})
	second := s.InsertOrder(&order.Order{Flavor: order.FlavorSupply})
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, fixedNow, second.CreatedAt)

	all := s.Orders(nil)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	supplyOnly := s.Orders(func(o *order.Order) bool { return o.Flavor == order.FlavorSupply })
	require.Len(t, supplyOnly, 1)

	// Returned orders are copies
	all[0].Quantity = 99
	again, err := s.Order(second.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Quantity)

	_, err = s.Order("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateOrder(t *testing.T) {
	s := newTestStore()
	o := s.InsertOrder(&order.Order{Flavor: order.FlavorGoods, OrderStatus: order.OrderStatusPending})

	updated, err := s.UpdateOrder(o.ID, func(cur *order.Order) (*order.Order, error) {
		cur.OrderStatus = order.OrderStatusApproved
		return cur, nil
	})
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusApproved, updated.OrderStatus)

	boom := errors.New("rejected")
	_, err = s.UpdateOrder(o.ID, func(cur *order.Order) (*order.Order, error) {
		cur.OrderStatus = order.OrderStatusCancelled
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	stored, _ := s.Order(o.ID)
	assert.Equal(t, order.OrderStatusApproved, stored.OrderStatus)

	_, err = s.UpdateOrder("missing", func(cur *order.Order) (*order.Order, error) { return cur, nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateOrderSerializesConflicts(t *testing.T) {
	s := newTestStore()
	o := s.InsertOrder(&order.Order{Flavor: order.FlavorGoods, OrderStatus: order.OrderStatusPending})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateOrder(o.ID, func(cur *order.Order) (*order.Order, error) {
				if cur.OrderStatus != order.OrderStatusPending {
					return nil, errors.New("conflict")
				}
				cur.OrderStatus = order.OrderStatusApproved
				return cur, nil
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}

func TestStore_Messages(t *testing.T) {
	s := newTestStore()

	ch, cancel := s.Subscribe("b", "a")
	sent := s.AppendMessage(chat.Message{From: "a", To: "b", Text: "hi", Pending: true})
	assert.NotEmpty(t, sent.ID)
	assert.False(t, sent.Pending)
	assert.Equal(t, fixedNow, sent.SentAt)

	select {
	case got := <-ch:
		assert.Equal(t, sent.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the message")
	}

	s.AppendMessage(chat.Message{From: "b", To: "a", Text: "hello"})
	s.AppendMessage(chat.Message{From: "a", To: "c", Text: "elsewhere"})
	assert.Len(t, s.Messages("a", "b"), 2)
	assert.Len(t, s.Messages("c", "a"), 1)

	cancel()
	cancel()
	_, open := <-drain(ch)
	assert.False(t, open)
}

// drain empties buffered messages and returns the closed channel
func drain(ch <-chan chat.Message) <-chan chat.Message {
	for range ch {
	}
	return ch
}

func TestSeed(t *testing.T) {
	s := newTestStore()
	require.NoError(t, Seed(s))

	u, err := s.Authenticate("supplier@example.com", SeedPassword)
	require.NoError(t, err)
	assert.Equal(t, order.RoleSupplier, u.Role)

	orders := s.Orders(nil)
	assert.Len(t, orders, 6)
	for _, o := range orders {
		assert.True(t, o.IsComplete(), o.ID)
	}

	received, err := s.Order("g-1003")
	require.NoError(t, err)
	assert.True(t, received.IsFinalized())
	assert.Len(t, s.Messages(SeedArtisanID, SeedSupplierID), 2)
	assert.Equal(t, "Woven Basket", s.Product("p-basket").Name)
	assert.Equal(t, "unknown", s.Product("unknown").ID)
}
