package repositories_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"checkout/internal/models"
	"checkout/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := repositories.OpenDatabase("sqlite", dsn)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, repositories.AutoMigrate(db))
	return db
}

// stores returns one GORM-backed and one in-memory Store so every behaviour
// is checked against both implementations.
func stores(t *testing.T) map[string]repositories.Store {
	return map[string]repositories.Store{
		"gorm": repositories.NewGORMStore(newTestDB(t)),
		"mock": repositories.NewMockStore(),
	}
}

func newOrder(userID string) *models.Order {
	return &models.Order{
		UserID:          userID,
		CartID:          "cart-1",
		CartItems:       []models.OrderItem{{ProductID: "p1", Title: "Laptop", Price: 1200, Quantity: 2}},
		AddressInfo:     models.AddressInfo{Address: "Thamel", City: "Kathmandu", Pincode: "44600", Phone: "9800000000"},
		OrderStatus:     models.OrderStatusPending,
		PaymentMethod:   models.PaymentMethodEsewa,
		PaymentStatus:   models.PaymentStatusUnpaid,
		TotalAmount:     2400,
		TransactionUUID: uuid.New().String(),
		OrderDate:       time.Now(),
		OrderUpdateDate: time.Now(),
	}
}

func TestOrderRepository_CRUD(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := store.Orders()
			order := newOrder("user-1")

			require.NoError(t, repo.Create(order))
			assert.NotEmpty(t, order.ID)

			got, err := repo.GetByID(order.ID)
			require.NoError(t, err)
			assert.Equal(t, order.TransactionUUID, got.TransactionUUID)
			assert.Equal(t, order.CartItems, got.CartItems)
			assert.Equal(t, order.AddressInfo, got.AddressInfo)

			got.OrderStatus = models.OrderStatusConfirmed
			require.NoError(t, repo.Update(got))
			got, err = repo.GetByID(order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.OrderStatusConfirmed, got.OrderStatus)

			require.NoError(t, repo.Delete(order.ID))
			_, err = repo.GetByID(order.ID)
			assert.ErrorIs(t, err, repositories.ErrNotFound)

			assert.ErrorIs(t, repo.Delete(order.ID), repositories.ErrNotFound)
			assert.ErrorIs(t, repo.Update(order), repositories.ErrNotFound)
		})
	}
}

func TestOrderRepository_GetByUserID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := store.Orders()
			require.NoError(t, repo.Create(newOrder("user-1")))
			require.NoError(t, repo.Create(newOrder("user-1")))
			require.NoError(t, repo.Create(newOrder("user-2")))

			orders, err := repo.GetByUserID("user-1")
			require.NoError(t, err)
			assert.Len(t, orders, 2)

			orders, err = repo.GetByUserID("nobody")
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}
}

func TestOrderRepository_DuplicateTransactionUUID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			first := newOrder("user-1")
			require.NoError(t, store.Orders().Create(first))

			second := newOrder("user-1")
			second.TransactionUUID = first.TransactionUUID
			assert.Error(t, store.Orders().Create(second))
		})
	}
}

func TestOrderRepository_ConfirmPayment(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := store.Orders()
			order := newOrder("user-1")
			require.NoError(t, repo.Create(order))

			order.MarkPaid("REF-1", time.Now())
			require.NoError(t, repo.ConfirmPayment(order))

			got, err := repo.GetByID(order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
			assert.Equal(t, models.OrderStatusConfirmed, got.OrderStatus)
			assert.Equal(t, "REF-1", got.PaymentID)

			assert.ErrorIs(t, repo.ConfirmPayment(order), repositories.ErrAlreadyPaid)

			missing := newOrder("user-1")
			missing.ID = "missing"
			assert.ErrorIs(t, repo.ConfirmPayment(missing), repositories.ErrNotFound)
		})
	}
}

func TestProductRepository_DecrementStock(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := store.Products()
			product := &models.Product{Title: "Keyboard", Price: 75, TotalStock: 25}
			require.NoError(t, repo.Create(product))

			require.NoError(t, repo.DecrementStock(product.ID, 3))
			got, err := repo.GetByID(product.ID)
			require.NoError(t, err)
			assert.Equal(t, 22, got.TotalStock)

			assert.ErrorIs(t, repo.DecrementStock("missing", 1), repositories.ErrNotFound)
		})
	}
}

func TestProductRepository_CreateAndGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := store.Products()
			product := &models.Product{Title: "Mouse", Price: 25, SalePrice: 20, TotalStock: 50}
			require.NoError(t, repo.Create(product))
			assert.NotEmpty(t, product.ID)

			got, err := repo.GetByID(product.ID)
			require.NoError(t, err)
			assert.Equal(t, "Mouse", got.Title)
			assert.Equal(t, 20.0, got.SalePrice)
			assert.Equal(t, 50, got.TotalStock)

			_, err = repo.GetByID("missing")
			assert.ErrorIs(t, err, repositories.ErrNotFound)
		})
	}
}

func TestCartRepository(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := store.Carts()
			cart := &models.Cart{UserID: "user-1", Items: []models.CartItem{{ProductID: "p1", Quantity: 1}}}
			require.NoError(t, repo.Create(cart))

			got, err := repo.GetByID(cart.ID)
			require.NoError(t, err)
			assert.Equal(t, cart.Items, got.Items)

			require.NoError(t, repo.Delete(cart.ID))
			_, err = repo.GetByID(cart.ID)
			assert.ErrorIs(t, err, repositories.ErrNotFound)
		})
	}
}

func TestStore_TransactionRollsBack(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			product := &models.Product{Title: "Laptop", Price: 1200, TotalStock: 10}
			require.NoError(t, store.Products().Create(product))
			cart := &models.Cart{UserID: "user-1"}
			require.NoError(t, store.Carts().Create(cart))

			boom := errors.New("boom")
			created := newOrder("user-1")
			err := store.Transaction(func(tx repositories.Store) error {
				if err := tx.Orders().Create(created); err != nil {
					return err
				}
				if err := tx.Products().DecrementStock(product.ID, 4); err != nil {
					return err
				}
				if err := tx.Carts().Delete(cart.ID); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			got, err := store.Products().GetByID(product.ID)
			require.NoError(t, err)
			assert.Equal(t, 10, got.TotalStock)
			_, err = store.Carts().GetByID(cart.ID)
			assert.NoError(t, err)
			_, err = store.Orders().GetByID(created.ID)
			assert.ErrorIs(t, err, repositories.ErrNotFound)
		})
	}
}

// SQLite allows one connection in these tests, so writing outside a running
// transaction is only exercised against the in-memory store.
func TestMockStore_RollbackKeepsWritesOutsideTransaction(t *testing.T) {
	store := repositories.NewMockStore()
	product := &models.Product{Title: "Laptop", Price: 1200, TotalStock: 10}
	require.NoError(t, store.Products().Create(product))

	outside := newOrder("user-2")
	boom := errors.New("boom")
	err := store.Transaction(func(tx repositories.Store) error {
		if err := tx.Products().DecrementStock(product.ID, 4); err != nil {
			return err
		}
		if err := store.Orders().Create(outside); err != nil {
			return err
		}
		if err := store.Products().Create(&models.Product{ID: "p-new", Title: "Cable", TotalStock: 3}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Orders().GetByID(outside.ID)
	assert.NoError(t, err)
	_, err = store.Products().GetByID("p-new")
	assert.NoError(t, err)
	got, err := store.Products().GetByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.TotalStock)
}

func TestMockStore_RollbackRestoresUpdatedRecords(t *testing.T) {
	store := repositories.NewMockStore()
	order := newOrder("user-1")
	require.NoError(t, store.Orders().Create(order))

	err := store.Transaction(func(tx repositories.Store) error {
		paid := *order
		paid.MarkPaid("ref-1", time.Now())
		if err := tx.Orders().ConfirmPayment(&paid); err != nil {
			return err
		}
		return tx.Transaction(func(inner repositories.Store) error {
			return inner.Orders().Delete(order.ID)
		})
	})
	require.NoError(t, err)
	_, err = store.Orders().GetByID(order.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	other := newOrder("user-1")
	require.NoError(t, store.Orders().Create(other))
	boom := errors.New("boom")
	err = store.Transaction(func(tx repositories.Store) error {
		paid := *other
		paid.MarkPaid("ref-2", time.Now())
		if err := tx.Orders().ConfirmPayment(&paid); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Orders().GetByID(other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, got.PaymentStatus)
	assert.Empty(t, got.PaymentID)
}

func TestStore_TransactionCommits(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			product := &models.Product{Title: "Laptop", Price: 1200, TotalStock: 10}
			require.NoError(t, store.Products().Create(product))

			err := store.Transaction(func(tx repositories.Store) error {
				return tx.Products().DecrementStock(product.ID, 4)
			})
			require.NoError(t, err)

			got, err := store.Products().GetByID(product.ID)
			require.NoError(t, err)
			assert.Equal(t, 6, got.TotalStock)
		})
	}
}

func TestOpenDatabase_UnknownDriver(t *testing.T) {
	_, err := repositories.OpenDatabase("mongo", "")
	assert.Error(t, err)
}
