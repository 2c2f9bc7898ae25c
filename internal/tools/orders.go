package tools

import (
	"context"
	"errors"
	"sync"
)

// OrderStatusPending is the status of every newly placed order.
const OrderStatusPending = "pending"

// ErrOrderNotFound is returned by an OrderStore when no order has the id.
var ErrOrderNotFound = errors.New("order not found")

// Order is a placed medication order.
type Order struct {
	OrderID      int64  `json:"order_id"`
	CustomerName string `json:"customer_name"`
	DrugName     string `json:"drug_name"`
	Status       string `json:"status"`
}

// OrderStore persists orders. NextOrderID must be an atomic increment:
// concurrent callers never observe the same id.
type OrderStore interface {
	NextOrderID(ctx context.Context) (int64, error)
	SaveOrder(ctx context.Context, order Order) error
	GetOrder(ctx context.Context, id int64) (Order, error)
}

// MemoryStore is a process-local OrderStore. Orders are lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]Order
}

// NewMemoryStore creates an empty store whose first id is 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[int64]Order)}
}

// NextOrderID implements OrderStore.
func (s *MemoryStore) NextOrderID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID, nil
}

// SaveOrder implements OrderStore.
func (s *MemoryStore) SaveOrder(_ context.Context, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = order
	return nil
}

// GetOrder implements OrderStore.
func (s *MemoryStore) GetOrder(_ context.Context, id int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}
