package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"checkout/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     *sync.RWMutex
	// undo holds the pre-transaction value of every order written through a
	// transactional view; nil marks an order that did not exist.
	undo map[string]*models.Order
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
		mu:     &sync.RWMutex{},
	}
}

// Create adds a new order.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("failed to create order: duplicate ID %s", order.ID)
	}
	for _, o := range r.orders {
		if o.TransactionUUID == order.TransactionUUID {
			return fmt.Errorf("failed to create order: duplicate transaction_uuid %s", order.TransactionUUID)
		}
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.remember(order.ID)
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	order = cloneOrder(order)
	return &order, nil
}

// GetByUserID returns every order placed by userID, newest first.
func (r *MockOrderRepository) GetByUserID(userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0)
	for _, order := range r.orders {
		if order.UserID == userID {
			orderList = append(orderList, cloneOrder(order))
		}
	}
	sort.Slice(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList, nil
}

// Update replaces an existing order.
func (r *MockOrderRepository) Update(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", order.ID, ErrNotFound)
	}
	order.CreatedAt = existing.CreatedAt
	order.UpdatedAt = time.Now()
	r.remember(order.ID)
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// Delete removes an order by its ID.
func (r *MockOrderRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	r.remember(id)
	delete(r.orders, id)
	return nil
}

// ConfirmPayment stores the payment fields unless the order is already paid.
func (r *MockOrderRepository) ConfirmPayment(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", order.ID, ErrNotFound)
	}
	if existing.PaymentStatus == models.PaymentStatusPaid {
		return fmt.Errorf("order with ID %s: %w", order.ID, ErrAlreadyPaid)
	}
	existing.PaymentStatus = order.PaymentStatus
	existing.OrderStatus = order.OrderStatus
	existing.PaymentID = order.PaymentID
	existing.OrderUpdateDate = order.OrderUpdateDate
	existing.UpdatedAt = time.Now()
	r.remember(order.ID)
	r.orders[order.ID] = existing
	return nil
}

// txView returns a repository sharing r's data that records what it changes.
func (r *MockOrderRepository) txView() *MockOrderRepository {
	return &MockOrderRepository{orders: r.orders, mu: r.mu, undo: make(map[string]*models.Order)}
}

// remember must be called with mu held, before id is written.
func (r *MockOrderRepository) remember(id string) {
	if r.undo == nil {
		return
	}
	if _, seen := r.undo[id]; seen {
		return
	}
	if o, ok := r.orders[id]; ok {
		o = cloneOrder(o)
		r.undo[id] = &o
		return
	}
	r.undo[id] = nil
}

// rollback restores every order written through this view.
func (r *MockOrderRepository) rollback() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, prev := range r.undo {
		if prev == nil {
			delete(r.orders, id)
			continue
		}
		r.orders[id] = *prev
	}
}

func cloneOrder(o models.Order) models.Order {
	o.CartItems = append([]models.OrderItem(nil), o.CartItems...)
	return o
}
