package repositories

import "checkout/internal/models"

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	Create(cart *models.Cart) error
	GetByID(id string) (*models.Cart, error)
	Delete(id string) error
}
