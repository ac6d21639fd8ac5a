package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/streadway/amqp"

	"checkout/internal/config"
	"checkout/internal/esewa"
	"checkout/internal/handlers"
	"checkout/internal/lock"
	"checkout/internal/middleware"
	"checkout/internal/models"
	"checkout/internal/repositories"
	"checkout/internal/services"
	"checkout/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Initialize Store ---
	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	// --- Initialize Verification Lock ---
	locker, closeLocker, err := newLocker(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize verification lock: %v", err)
	}
	defer closeLocker()

	// --- Initialize RabbitMQ Client ---
	// Events are optional; without RABBITMQ_URL orders are processed without publishing.
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		log.Println("RABBITMQ_URL not set, order events are disabled")
	}

	// --- Initialize Services and Handlers ---
	orderService := services.NewOrderService(store, esewa.NewClient(cfg.Esewa), locker, publisher, services.OrderServiceConfig{
		ClientAppURL:  cfg.ClientAppURL,
		VerifyLockTTL: cfg.VerifyLockTTL,
	})
	orderHandler := handlers.NewOrderHandler(orderService)

	app := newApp(orderHandler, cfg.JWTSecret, mqClient != nil)

	// --- Start RabbitMQ Consumer ---
	if mqClient != nil {
		log.Println("Starting RabbitMQ consumer for order events...")
		if err := mqClient.ConsumeOrderEvents(handleOrderEvent); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// newApp builds the Fiber app with middleware, the health check and the order routes.
// A non-empty jwtSecret puts the bearer-token check in front of the order API.
func newApp(orderHandler *handlers.OrderHandler, jwtSecret string, eventsEnabled bool) *fiber.App {
	app := fiber.New()

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		events := "disabled"
		if eventsEnabled {
			events = "connected"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"rabbitMQ": events,
		})
	})

	// --- API Routes ---
	var auth []fiber.Handler
	if jwtSecret != "" {
		auth = append(auth, middleware.AuthRequired(jwtSecret))
	}
	orderHandler.RegisterRoutes(app.Group("/api/shop/order"), auth...)

	return app
}

// openStore opens the configured Store and returns a function that releases it.
func openStore(cfg config.Config) (repositories.Store, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		store := repositories.NewMockStore()
		seedProducts(store.Products())
		return store, func() {}, nil
	}

	db, err := repositories.OpenDatabase(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := repositories.AutoMigrate(db); err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	log.Printf("Connected to %s database", cfg.DBDriver)

	return repositories.NewGORMStore(db), func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}, nil
}

// newLocker returns a Redis-backed Locker when REDIS_ADDR is set and a
// process-local one otherwise.
func newLocker(ctx context.Context, cfg config.Config) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, using in-process verification lock")
		return lock.NewMemoryLocker(), func() {}, nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedisLocker(client, "checkout"), func() {
		if err := client.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}, nil
}

// handleOrderEvent logs order events published by this or any other instance.
func handleOrderEvent(msg amqp.Delivery) error {
	var event services.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("invalid order event: %w", err)
	}
	if event.OrderID == "" {
		return fmt.Errorf("order event %s has no order id", msg.RoutingKey)
	}
	log.Printf("Received %s event (Tag: %d): order %s, user %s, payment %s",
		msg.RoutingKey, msg.DeliveryTag, event.OrderID, event.UserID, event.PaymentStatus)
	return nil
}

// seedProducts populates the in-memory catalogue so the memory driver is usable on its own.
func seedProducts(repo repositories.ProductRepository) {
	products := []models.Product{
		{ID: "prod-1", Title: "Laptop", Price: 1200.00, SalePrice: 1100.00, TotalStock: 10},
		{ID: "prod-2", Title: "Keyboard", Price: 75.00, TotalStock: 25},
		{ID: "prod-3", Title: "Mouse", Price: 25.00, TotalStock: 50},
	}

	for i := range products {
		if err := repo.Create(&products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Title, err)
		} else {
			log.Printf("Seeded product: %s (ID: %s)", products[i].Title, products[i].ID)
		}
	}
}
