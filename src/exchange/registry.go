package exchange

import "sync"

// OrderRegistry maps order id to the live order object so cancel and amend can
// find their target without scanning a book. Membership tracks the books in
// lock-step: an order is registered while it rests (or is being inserted) and
// unregistered the moment it fills or is cancelled, always under the same
// instrument lock that mutates the book. The registry's own lock only protects
// the map against concurrent access from different instrument locks.
type OrderRegistry struct {
	mu     sync.RWMutex
	orders map[uint64]*Order
}

func NewOrderRegistry() *OrderRegistry {
	return &OrderRegistry{orders: make(map[uint64]*Order)}
}

func (r *OrderRegistry) Register(o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
}

func (r *OrderRegistry) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
}

func (r *OrderRegistry) Lookup(id uint64) (*Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	return o, ok
}

func (r *OrderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
