package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"checkout/internal/esewa"
	"checkout/internal/models"
	"checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for eSewa checkout and orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes on router. The auth handlers, if
// any, guard every route except the redirect page, which is opened by plain
// browser navigation.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth ...fiber.Handler) {
	guarded := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, auth...), handler)
	}

	router.Post("/esewa/create-order", guarded(h.HandleCreateOrder)...)
	router.Post("/esewa/verify-payment", guarded(h.HandleVerifyPayment)...)
	router.Get("/esewa/redirect/:id", h.HandleRedirect)
	router.Get("/user/:userId/orders", guarded(h.HandleGetOrdersByUser)...)
	router.Get("/:id", guarded(h.HandleGetOrderByID)...)
}

// HandleCreateOrder stores a pending order and returns the signed eSewa form.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing create-order request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return h.validationFailed(c, err)
	}
	if forbidden(c, req.UserID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Cannot create orders for another user",
		})
	}

	res, err := h.service.CreateOrder(c.UserContext(), req)
	if err != nil {
		log.Printf("Error creating order for user %s: %v", req.UserID, err)
		return writeError(c, err, "Server error")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"formUrl":  res.FormURL,
		"formData": res.FormData,
		"orderId":  res.Order.ID,
	})
}

type verifyPaymentRequest struct {
	OrderID         string        `json:"orderId" validate:"required"`
	TotalAmount     *esewa.Amount `json:"total_amount"`
	TransactionUUID string        `json:"transaction_uuid"`
	Data            string        `json:"data"`
}

// HandleVerifyPayment confirms an order after eSewa redirected back to the storefront.
func (h *OrderHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing verify-payment request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return h.validationFailed(c, err)
	}
	if _, err := h.ownOrder(c, req.OrderID); err != nil {
		return writeError(c, err, "Verification failed")
	}

	in := services.VerifyPaymentInput{
		OrderID:         req.OrderID,
		TransactionUUID: req.TransactionUUID,
		Data:            req.Data,
	}
	if req.TotalAmount != nil {
		v := req.TotalAmount.Float64()
		in.TotalAmount = &v
	}

	res, err := h.service.VerifyPayment(c.UserContext(), in)
	if err != nil {
		log.Printf("Error verifying payment for order %s: %v", req.OrderID, err)
		return writeError(c, err, "Verification failed")
	}

	message := "Order confirmed"
	if res.AlreadyConfirmed {
		message = "Order already confirmed"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    res.Order,
	})
}

// HandleRedirect serves a page that auto-submits the payment form of an unpaid order.
func (h *OrderHandler) HandleRedirect(c *fiber.Ctx) error {
	orderID := c.Params("id")
	formURL, req, err := h.service.BuildRedirect(orderID)
	if err != nil {
		log.Printf("Error building payment redirect for order %s: %v", orderID, err)
		return writeError(c, err, "Could not build payment form")
	}

	var page bytes.Buffer
	if err := esewa.RenderForm(&page, formURL, req); err != nil {
		log.Printf("Error rendering payment form for order %s: %v", orderID, err)
		return writeError(c, err, "Could not build payment form")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(page.Bytes())
}

// HandleGetOrdersByUser lists the orders of a user, newest first.
func (h *OrderHandler) HandleGetOrdersByUser(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if forbidden(c, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Cannot list orders of another user",
		})
	}

	orders, err := h.service.GetOrdersByUser(userID)
	if err != nil {
		if !errors.Is(err, services.ErrNoOrders) {
			log.Printf("Error getting orders of user %s: %v", userID, err)
		}
		return writeError(c, err, "Server error")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
	})
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.ownOrder(c, orderID)
	if err != nil {
		return writeError(c, err, "Server error")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}

// ownOrder loads an order on behalf of the caller. Another user's order is
// reported as not found so its existence is not revealed.
func (h *OrderHandler) ownOrder(c *fiber.Ctx, orderID string) (*models.Order, error) {
	order, err := h.service.GetOrderByID(orderID)
	if err != nil {
		if !errors.Is(err, services.ErrOrderNotFound) {
			log.Printf("Error getting order by ID %s: %v", orderID, err)
		}
		return nil, err
	}
	if forbidden(c, order.UserID) {
		return nil, services.ErrOrderNotFound
	}
	return order, nil
}

func (h *OrderHandler) validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Namespace()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// forbidden reports whether an authenticated caller is acting on another user's data.
// Without the auth middleware there is no caller identity and nothing is forbidden.
func forbidden(c *fiber.Ctx, userID string) bool {
	caller, ok := c.Locals("user_id").(string)
	return ok && caller != "" && caller != userID
}

// writeError maps service errors to HTTP responses. Anything unrecognised is a
// 500 carrying fallback as its message.
func writeError(c *fiber.Ctx, err error, fallback string) error {
	var incomplete *services.PaymentIncompleteError
	switch {
	case errors.As(err, &incomplete):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":     false,
			"message":     incomplete.Error(),
			"esewaStatus": incomplete.Status,
		})
	case errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrPaymentMismatch),
		errors.Is(err, esewa.ErrInvalidCallback):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Order not found",
		})
	case errors.Is(err, services.ErrNoOrders):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "No orders found",
		})
	case errors.Is(err, services.ErrVerificationInProgress),
		errors.Is(err, services.ErrOrderAlreadyPaid):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": fallback,
	})
}
