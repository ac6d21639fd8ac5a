package models

import "time"

// Product is a catalogue entry whose stock is decremented when an order is paid.
type Product struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title      string    `json:"title" validate:"required,min=1,max=200"`
	Image      string    `json:"image"`
	Price      float64   `json:"price" validate:"gte=0"`
	SalePrice  float64   `json:"salePrice" validate:"gte=0"`
	TotalStock int       `json:"totalStock"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
