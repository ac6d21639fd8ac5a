package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/url"
	"time"

	"checkout/internal/esewa"
	"checkout/internal/lock"
	"checkout/internal/models"
	"checkout/internal/repositories"

	"github.com/google/uuid"
)

// Routing keys of the events published by OrderService.
const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
)

// PaymentGateway is the part of the eSewa client the service relies on.
type PaymentGateway interface {
	FormURL() string
	NewPaymentRequest(p esewa.PaymentParams) esewa.PaymentRequest
	CheckStatus(ctx context.Context, totalAmount float64, transactionUUID string) (*esewa.StatusResponse, error)
	DecodeCallback(data string) (*esewa.Callback, error)
}

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	Publish(routingKey string, payload interface{}) error
}

// OrderEvent is the body of every published order event.
type OrderEvent struct {
	OrderID         string    `json:"orderId"`
	UserID          string    `json:"userId"`
	TransactionUUID string    `json:"transaction_uuid"`
	TotalAmount     float64   `json:"totalAmount"`
	OrderStatus     string    `json:"orderStatus"`
	PaymentStatus   string    `json:"paymentStatus"`
	PaymentID       string    `json:"paymentId,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// OrderServiceConfig holds the settings OrderService needs from the process config.
type OrderServiceConfig struct {
	// ClientAppURL is the storefront root the success and failure redirects point to.
	ClientAppURL  string
	VerifyLockTTL time.Duration
}

// OrderService handles business logic related to orders and their eSewa payments.
type OrderService struct {
	store     repositories.Store
	gateway   PaymentGateway
	locker    lock.Locker
	publisher EventPublisher
	cfg       OrderServiceConfig
	now       func() time.Time
}

// NewOrderService creates a new OrderService. publisher may be nil, in which
// case no events are published.
func NewOrderService(store repositories.Store, gateway PaymentGateway, locker lock.Locker, publisher EventPublisher, cfg OrderServiceConfig) *OrderService {
	return &OrderService{
		store:     store,
		gateway:   gateway,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateOrderInput is the checkout payload sent by the storefront.
type CreateOrderInput struct {
	UserID        string             `json:"userId" validate:"required"`
	CartID        string             `json:"cartId"`
	CartItems     []models.OrderItem `json:"cartItems" validate:"required,min=1,dive"`
	AddressInfo   models.AddressInfo `json:"addressInfo"`
	TotalAmount   *float64           `json:"totalAmount" validate:"required,gte=0"`
	PaymentMethod string             `json:"paymentMethod" validate:"omitempty,oneof=esewa"`
	PaymentStatus string             `json:"paymentStatus" validate:"omitempty,oneof=unpaid pending"`
	OrderStatus   string             `json:"orderStatus" validate:"omitempty,oneof=pending"`
}

// CreateOrderResult carries what the browser needs to start the payment.
type CreateOrderResult struct {
	FormURL  string
	FormData esewa.PaymentRequest
	Order    *models.Order
}

// CreateOrder persists a pending order and returns the signed payment form for it.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if err := checkCreateInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		UserID:          in.UserID,
		CartID:          in.CartID,
		CartItems:       in.CartItems,
		AddressInfo:     in.AddressInfo,
		OrderStatus:     valueOr(in.OrderStatus, models.OrderStatusPending),
		PaymentMethod:   valueOr(in.PaymentMethod, models.PaymentMethodEsewa),
		PaymentStatus:   valueOr(in.PaymentStatus, models.PaymentStatusUnpaid),
		TotalAmount:     esewa.RoundAmount(*in.TotalAmount),
		TransactionUUID: uuid.New().String(),
		OrderDate:       now,
		OrderUpdateDate: now,
	}

	if err := s.store.Orders().Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}
	log.Printf("Created order %s for user %s (transaction %s, total %s)",
		order.ID, order.UserID, order.TransactionUUID, esewa.FormatAmount(order.TotalAmount))

	s.publish(EventOrderCreated, order)

	return &CreateOrderResult{
		FormURL:  s.gateway.FormURL(),
		FormData: s.paymentRequest(order),
		Order:    order,
	}, nil
}

// VerifyPaymentInput is what the storefront forwards after eSewa redirects back.
type VerifyPaymentInput struct {
	OrderID         string   `json:"orderId" validate:"required"`
	TotalAmount     *float64 `json:"-"`
	TransactionUUID string   `json:"transaction_uuid"`
	// Data is the base64 payload eSewa appends to the success URL.
	Data string `json:"data"`
}

// VerifyPaymentResult is the order after verification.
type VerifyPaymentResult struct {
	Order *models.Order
	// AlreadyConfirmed is set when the order was paid before this call and
	// nothing was changed.
	AlreadyConfirmed bool
}

// VerifyPayment confirms an order once eSewa reports its transaction COMPLETE.
// The stored amount and transaction id are what get checked with eSewa;
// values supplied by the caller only have to agree with them. A paid order is
// returned untouched, so retries never decrement stock twice.
func (s *OrderService) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (*VerifyPaymentResult, error) {
	order, err := s.GetOrderByID(in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return &VerifyPaymentResult{Order: order, AlreadyConfirmed: true}, nil
	}

	if err := s.checkClaim(order, in); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, "verify:"+order.ID, s.cfg.VerifyLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, ErrVerificationInProgress
		}
		return nil, fmt.Errorf("failed to lock order %s for verification: %w", order.ID, err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			log.Printf("Warning: %v", err)
		}
	}()

	// another request may have confirmed the order while we waited for the lock
	if order, err = s.GetOrderByID(order.ID); err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return &VerifyPaymentResult{Order: order, AlreadyConfirmed: true}, nil
	}

	status, err := s.gateway.CheckStatus(ctx, order.TotalAmount, order.TransactionUUID)
	if err != nil {
		return nil, fmt.Errorf("payment status check for order %s failed: %w", order.ID, err)
	}
	if !status.IsComplete() {
		log.Printf("Payment for order %s not complete: %s", order.ID, status.Status)
		return nil, &PaymentIncompleteError{Status: status}
	}

	order.MarkPaid(status.RefID, s.now())
	err = s.store.Transaction(func(tx repositories.Store) error {
		return applyConfirmation(tx, order)
	})
	if errors.Is(err, repositories.ErrAlreadyPaid) {
		current, getErr := s.GetOrderByID(order.ID)
		if getErr != nil {
			return nil, getErr
		}
		return &VerifyPaymentResult{Order: current, AlreadyConfirmed: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm order %s: %w", order.ID, err)
	}
	log.Printf("Order %s confirmed (eSewa ref %s)", order.ID, order.PaymentID)

	s.publish(EventOrderConfirmed, order)

	return &VerifyPaymentResult{Order: order}, nil
}

// applyConfirmation marks the order paid, takes the ordered quantities out of
// stock and removes the cart. Products or carts that no longer exist are skipped.
func applyConfirmation(tx repositories.Store, order *models.Order) error {
	if err := tx.Orders().ConfirmPayment(order); err != nil {
		return err
	}
	for _, item := range order.CartItems {
		if err := tx.Products().DecrementStock(item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				log.Printf("Skipping stock update for missing product %s (order %s)", item.ProductID, order.ID)
				continue
			}
			return err
		}
	}
	if order.CartID == "" {
		return nil
	}
	if err := tx.Carts().Delete(order.CartID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	return nil
}

// GetOrdersByUser returns the orders of userID, newest first. An empty result
// is reported as ErrNoOrders.
func (s *OrderService) GetOrdersByUser(userID string) ([]models.Order, error) {
	orders, err := s.store.Orders().GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// BuildRedirect rebuilds the signed payment form of an unpaid order. The
// signature is deterministic, so it matches the one issued at creation.
func (s *OrderService) BuildRedirect(id string) (string, esewa.PaymentRequest, error) {
	order, err := s.GetOrderByID(id)
	if err != nil {
		return "", esewa.PaymentRequest{}, err
	}
	if order.IsPaid() {
		return "", esewa.PaymentRequest{}, ErrOrderAlreadyPaid
	}
	return s.gateway.FormURL(), s.paymentRequest(order), nil
}

func (s *OrderService) paymentRequest(order *models.Order) esewa.PaymentRequest {
	orderID := url.QueryEscape(order.ID)
	return s.gateway.NewPaymentRequest(esewa.PaymentParams{
		TotalAmount:     order.TotalAmount,
		TransactionUUID: order.TransactionUUID,
		SuccessURL:      fmt.Sprintf("%s/shop/esewa-success?orderId=%s", s.cfg.ClientAppURL, orderID),
		FailureURL:      fmt.Sprintf("%s/shop/esewa-failure?orderId=%s", s.cfg.ClientAppURL, orderID),
	})
}

// checkClaim compares what the caller says was paid with the stored order.
func (s *OrderService) checkClaim(order *models.Order, in VerifyPaymentInput) error {
	amount, transactionUUID := in.TotalAmount, in.TransactionUUID
	if in.Data != "" {
		cb, err := s.gateway.DecodeCallback(in.Data)
		if err != nil {
			return err
		}
		amount, transactionUUID = &cb.TotalAmount, cb.TransactionUUID
	}
	if transactionUUID != "" && transactionUUID != order.TransactionUUID {
		return fmt.Errorf("%w: transaction_uuid %s", ErrPaymentMismatch, transactionUUID)
	}
	if amount != nil && !esewa.SameAmount(*amount, order.TotalAmount) {
		return fmt.Errorf("%w: total_amount %s", ErrPaymentMismatch, esewa.FormatAmount(*amount))
	}
	return nil
}

func (s *OrderService) publish(routingKey string, order *models.Order) {
	if s.publisher == nil {
		log.Printf("RabbitMQ client is not initialized. Skipping %s event.", routingKey)
		return
	}
	event := OrderEvent{
		OrderID:         order.ID,
		UserID:          order.UserID,
		TransactionUUID: order.TransactionUUID,
		TotalAmount:     order.TotalAmount,
		OrderStatus:     order.OrderStatus,
		PaymentStatus:   order.PaymentStatus,
		PaymentID:       order.PaymentID,
		OccurredAt:      s.now(),
	}
	if err := s.publisher.Publish(routingKey, event); err != nil {
		log.Printf("Warning: Failed to publish %s event for order %s: %v", routingKey, order.ID, err)
	}
}

func checkCreateInput(in CreateOrderInput) error {
	if in.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidOrder)
	}
	if len(in.CartItems) == 0 {
		return fmt.Errorf("%w: at least one cart item is required", ErrInvalidOrder)
	}
	if in.TotalAmount == nil || *in.TotalAmount < 0 || math.IsNaN(*in.TotalAmount) || math.IsInf(*in.TotalAmount, 0) {
		return fmt.Errorf("%w: totalAmount must be a non-negative number", ErrInvalidOrder)
	}
	if in.OrderStatus != "" && in.OrderStatus != models.OrderStatusPending {
		return fmt.Errorf("%w: a new order can only be %s", ErrInvalidOrder, models.OrderStatusPending)
	}
	for _, item := range in.CartItems {
		if item.ProductID == "" || item.Quantity < 1 {
			return fmt.Errorf("%w: every item needs a productId and a positive quantity", ErrInvalidOrder)
		}
	}
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
