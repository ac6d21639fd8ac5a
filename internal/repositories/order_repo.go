package repositories

import (
	"checkout/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByUserID(userID string) ([]models.Order, error)
	Update(order *models.Order) error
	Delete(id string) error
	// ConfirmPayment persists the payment fields of order unless the stored
	// order is already paid, in which case it returns ErrAlreadyPaid.
	ConfirmPayment(order *models.Order) error
}
