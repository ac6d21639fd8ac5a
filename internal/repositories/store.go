package repositories

import (
	"fmt"
	"sync"

	"checkout/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Store groups the repositories a checkout touches so that several writes
// can share one transaction.
type Store interface {
	Orders() OrderRepository
	Products() ProductRepository
	Carts() CartRepository
	// Transaction runs fn against a transactional Store. If fn returns an
	// error every write made through tx is rolled back.
	Transaction(fn func(tx Store) error) error
}

// OpenDatabase opens a GORM connection for the given driver ("postgres" or "sqlite").
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the tables used by the service.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}, &models.Product{}, &models.Cart{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GORMStore is a Store backed by a GORM connection.
type GORMStore struct {
	db       *gorm.DB
	orders   *GORMOrderRepository
	products *GORMProductRepository
	carts    *GORMCartRepository
}

// NewGORMStore creates a Store over db.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{
		db:       db,
		orders:   NewGORMOrderRepository(db),
		products: NewGORMProductRepository(db),
		carts:    NewGORMCartRepository(db),
	}
}

func (s *GORMStore) Orders() OrderRepository     { return s.orders }
func (s *GORMStore) Products() ProductRepository { return s.products }
func (s *GORMStore) Carts() CartRepository       { return s.carts }

// Transaction runs fn inside a database transaction.
func (s *GORMStore) Transaction(fn func(tx Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMStore(tx))
	})
}

// MockStore is an in-memory Store. Transactions are serialized; writes made
// through the transactional Store are journaled per record and undone if fn
// fails, so writes outside the transaction are kept.
type MockStore struct {
	orders   *MockOrderRepository
	products *MockProductRepository
	carts    *MockCartRepository
	txMu     *sync.Mutex
	inTx     bool
}

// NewMockStore creates an empty in-memory Store.
func NewMockStore() *MockStore {
	return &MockStore{
		orders:   NewMockOrderRepository(),
		products: NewMockProductRepository(),
		carts:    NewMockCartRepository(),
		txMu:     &sync.Mutex{},
	}
}

func (s *MockStore) Orders() OrderRepository     { return s.orders }
func (s *MockStore) Products() ProductRepository { return s.products }
func (s *MockStore) Carts() CartRepository       { return s.carts }

// Transaction runs fn and undoes its writes if it fails. Nested calls join
// the enclosing transaction.
func (s *MockStore) Transaction(fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &MockStore{
		orders:   s.orders.txView(),
		products: s.products.txView(),
		carts:    s.carts.txView(),
		txMu:     s.txMu,
		inTx:     true,
	}
	if err := fn(tx); err != nil {
		tx.orders.rollback()
		tx.products.rollback()
		tx.carts.rollback()
		return err
	}
	return nil
}
