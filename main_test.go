package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout/internal/config"
	"checkout/internal/esewa"
	"checkout/internal/handlers"
	"checkout/internal/lock"
	"checkout/internal/repositories"
	"checkout/internal/services"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testHandler(store repositories.Store) *handlers.OrderHandler {
	client := esewa.NewClient(esewa.Config{
		BaseURL:       "https://rc-epay.esewa.com.np/api/epay",
		ProductCode:   "EPAYTEST",
		SecretKey:     "8gBm/:&EnhH.1/q",
		StatusTimeout: time.Second,
	})
	service := services.NewOrderService(store, client, lock.NewMemoryLocker(), nil, services.OrderServiceConfig{
		ClientAppURL:  "http://localhost:5173",
		VerifyLockTTL: time.Minute,
	})
	return handlers.NewOrderHandler(service)
}

func TestHealthCheck(t *testing.T) {
	app := newApp(testHandler(repositories.NewMockStore()), "", false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["rabbitMQ"])
}

func TestNewApp_AuthEnabled(t *testing.T) {
	app := newApp(testHandler(repositories.NewMockStore()), "secret", true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/shop/order/user/user-1/orders", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_AuthDisabled(t *testing.T) {
	app := newApp(testHandler(repositories.NewMockStore()), "", false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/shop/order/user/user-1/orders", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenStore(t *testing.T) {
	store, closeStore, err := openStore(config.Config{DBDriver: config.DriverMemory})
	require.NoError(t, err)
	defer closeStore()
	p, err := store.Products().GetByID("prod-1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.TotalStock)

	store, closeStore, err = openStore(config.Config{
		DBDriver:    config.DriverSQLite,
		DatabaseDSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
	})
	require.NoError(t, err)
	defer closeStore()
	_, err = store.Orders().GetByUserID("nobody")
	assert.NoError(t, err)

	_, _, err = openStore(config.Config{DBDriver: "mongo"})
	assert.Error(t, err)
}

func TestNewLocker(t *testing.T) {
	ctx := context.Background()

	locker, closeLocker, err := newLocker(ctx, config.Config{})
	require.NoError(t, err)
	closeLocker()
	assert.IsType(t, &lock.MemoryLocker{}, locker)

	mr := miniredis.RunT(t)
	locker, closeLocker, err = newLocker(ctx, config.Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	defer closeLocker()
	assert.IsType(t, &lock.RedisLocker{}, locker)

	_, err = locker.Acquire(ctx, "verify:order-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("checkout:lock:verify:order-1"))
}

func TestHandleOrderEvent(t *testing.T) {
	body, err := json.Marshal(services.OrderEvent{OrderID: "order-1", UserID: "user-1", PaymentStatus: "paid"})
	require.NoError(t, err)

	assert.NoError(t, handleOrderEvent(amqp.Delivery{RoutingKey: services.EventOrderConfirmed, Body: body}))
	assert.Error(t, handleOrderEvent(amqp.Delivery{RoutingKey: services.EventOrderCreated, Body: []byte("not json")}))
	assert.Error(t, handleOrderEvent(amqp.Delivery{RoutingKey: services.EventOrderCreated, Body: []byte(`{}`)}))
}
