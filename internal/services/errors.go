package services

import (
	"errors"
	"fmt"

	"checkout/internal/esewa"
)

var (
	ErrInvalidOrder           = errors.New("invalid order")
	ErrOrderNotFound          = errors.New("order not found")
	ErrNoOrders               = errors.New("no orders found")
	ErrPaymentMismatch        = errors.New("payment details do not match the order")
	ErrVerificationInProgress = errors.New("payment verification already in progress")
	ErrOrderAlreadyPaid       = errors.New("order already paid")
)

// PaymentIncompleteError reports a status check that did not return COMPLETE.
type PaymentIncompleteError struct {
	Status *esewa.StatusResponse
}

func (e *PaymentIncompleteError) Error() string {
	return fmt.Sprintf("Payment %s", e.Status.Status)
}
