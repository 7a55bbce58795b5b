package order

import (
	"sync"

	"github.com/marketplace/orderflow/internal/domain/order"
)

// Book is the client-side cache of orders. It only ever hands out copies,
// so callers cannot change cached state except through the service.
type Book struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
	ids    []string // list order as last returned by the server
}

// NewBook creates an empty book
func NewBook() *Book {
	return &Book{orders: make(map[string]*order.Order)}
}

// Replace swaps the whole book for a freshly listed set
func (b *Book) Replace(orders []*order.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = make(map[string]*order.Order, len(orders))
	b.ids = make([]string, 0, len(orders))
	for _, o := range orders {
		if o == nil || o.ID == "" {
			continue
		}
		if _, dup := b.orders[o.ID]; !dup {
			b.ids = append(b.ids, o.ID)
		}
		b.orders[o.ID] = o.Clone()
	}
}

// Put stores o, replacing any cached copy with the same ID
func (b *Book) Put(o *order.Order) {
	if o == nil || o.ID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[o.ID]; !ok {
		b.ids = append(b.ids, o.ID)
	}
	b.orders[o.ID] = o.Clone()
}

// Get returns a copy of the cached order
func (b *Book) Get(id string) (*order.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Remove forgets the order
func (b *Book) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[id]; !ok {
		return
	}
	delete(b.orders, id)
	for i, cached := range b.ids {
		if cached == id {
			b.ids = append(b.ids[:i], b.ids[i+1:]...)
			break
		}
	}
}

// List returns copies of all cached orders in list order
func (b *Book) List() []*order.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*order.Order, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, b.orders[id].Clone())
	}
	return out
}

// Len returns the number of cached orders
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// inflight tracks orders with a mutating request on the wire
type inflight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{ids: make(map[string]struct{})}
}

func (f *inflight) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.ids[id]; busy {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *inflight) release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}
