package models

import "time"

// Order lifecycle values.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"

	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"

	PaymentMethodEsewa = "esewa"
)

// OrderItem is a snapshot of a cart line at checkout time.
type OrderItem struct {
	ProductID string  `json:"productId" validate:"required"`
	Title     string  `json:"title"`
	Image     string  `json:"image"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
}

// AddressInfo is a snapshot of the shipping address chosen at checkout.
type AddressInfo struct {
	AddressID string `json:"addressId"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Pincode   string `json:"pincode"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
}

// Order is a customer order paid through eSewa.
type Order struct {
	ID              string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string      `json:"userId" gorm:"index;type:varchar(64)"`
	CartID          string      `json:"cartId" gorm:"type:varchar(64)"`
	CartItems       []OrderItem `json:"cartItems" gorm:"serializer:json"`
	AddressInfo     AddressInfo `json:"addressInfo" gorm:"serializer:json"`
	OrderStatus     string      `json:"orderStatus" gorm:"type:varchar(20)"`
	PaymentMethod   string      `json:"paymentMethod" gorm:"type:varchar(20)"`
	PaymentStatus   string      `json:"paymentStatus" gorm:"type:varchar(20)"`
	TotalAmount     float64     `json:"totalAmount"`
	TransactionUUID string      `json:"transaction_uuid" gorm:"uniqueIndex;type:varchar(64)"`
	PaymentID       string      `json:"paymentId,omitempty" gorm:"type:varchar(64)"`
	OrderDate       time.Time   `json:"orderDate"`
	OrderUpdateDate time.Time   `json:"orderUpdateDate"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// IsPaid reports whether the payment has already been confirmed.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// MarkPaid moves the order to confirmed/paid and records the processor reference.
func (o *Order) MarkPaid(refID string, at time.Time) {
	o.PaymentStatus = PaymentStatusPaid
	o.OrderStatus = OrderStatusConfirmed
	o.PaymentID = refID
	o.OrderUpdateDate = at
}
