package repositories

import (
	"fmt"
	"sync"

	"checkout/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[string]models.Product
	mu       *sync.RWMutex
	// undo holds the pre-transaction value of every product written through
	// a transactional view; nil marks a product that did not exist.
	undo map[string]*models.Product
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
		mu:       &sync.RWMutex{},
	}
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return &product, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.remember(product.ID)
	r.products[product.ID] = *product
	return nil
}

// DecrementStock subtracts quantity from a product's stock.
func (r *MockProductRepository) DecrementStock(id string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	r.remember(id)
	product.TotalStock -= quantity
	r.products[id] = product
	return nil
}

// txView returns a repository sharing r's data that records what it changes.
func (r *MockProductRepository) txView() *MockProductRepository {
	return &MockProductRepository{products: r.products, mu: r.mu, undo: make(map[string]*models.Product)}
}

// remember must be called with mu held, before id is written.
func (r *MockProductRepository) remember(id string) {
	if r.undo == nil {
		return
	}
	if _, seen := r.undo[id]; seen {
		return
	}
	if p, ok := r.products[id]; ok {
		r.undo[id] = &p
		return
	}
	r.undo[id] = nil
}

// rollback restores every product written through this view.
func (r *MockProductRepository) rollback() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, prev := range r.undo {
		if prev == nil {
			delete(r.products, id)
			continue
		}
		r.products[id] = *prev
	}
}
