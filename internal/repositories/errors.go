package repositories

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyPaid is returned when a payment confirmation targets an order
	// that is already paid.
	ErrAlreadyPaid = errors.New("order already paid")
)
