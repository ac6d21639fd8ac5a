package repositories

import (
	"fmt"
	"sync"
	"time"

	"checkout/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	carts map[string]models.Cart
	mu    *sync.RWMutex
	// undo holds the pre-transaction value of every cart written through a
	// transactional view; nil marks a cart that did not exist.
	undo map[string]*models.Cart
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[string]models.Cart),
		mu:    &sync.RWMutex{},
	}
}

// Create adds a new cart.
func (r *MockCartRepository) Create(cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	now := time.Now()
	cart.CreatedAt = now
	cart.UpdatedAt = now
	r.remember(cart.ID)
	r.carts[cart.ID] = *cart
	return nil
}

// GetByID returns a cart by its ID.
func (r *MockCartRepository) GetByID(id string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[id]
	if !ok {
		return nil, fmt.Errorf("cart with ID %s: %w", id, ErrNotFound)
	}
	return &cart, nil
}

// Delete removes a cart by its ID.
func (r *MockCartRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[id]; !ok {
		return fmt.Errorf("cart with ID %s: %w", id, ErrNotFound)
	}
	r.remember(id)
	delete(r.carts, id)
	return nil
}

// txView returns a repository sharing r's data that records what it changes.
func (r *MockCartRepository) txView() *MockCartRepository {
	return &MockCartRepository{carts: r.carts, mu: r.mu, undo: make(map[string]*models.Cart)}
}

// remember must be called with mu held, before id is written.
func (r *MockCartRepository) remember(id string) {
	if r.undo == nil {
		return
	}
	if _, seen := r.undo[id]; seen {
		return
	}
	if c, ok := r.carts[id]; ok {
		r.undo[id] = &c
		return
	}
	r.undo[id] = nil
}

// rollback restores every cart written through this view.
func (r *MockCartRepository) rollback() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, prev := range r.undo {
		if prev == nil {
			delete(r.carts, id)
			continue
		}
		r.carts[id] = *prev
	}
}
