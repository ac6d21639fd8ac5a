package repositories

import (
	"checkout/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	// DecrementStock subtracts quantity from the product's stock.
	DecrementStock(id string, quantity int) error
}
