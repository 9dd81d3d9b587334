package service

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
	"github.com/thuannguyen2034/food-market-sub000/internal/repository"
	"github.com/thuannguyen2034/food-market-sub000/pkg/database"
	apperrors "github.com/thuannguyen2034/food-market-sub000/pkg/errors"
)

// --- Mock repositories ---

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockOrderRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Get(0).([]string), args.Error(1)
}

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) GetByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepo) UpsertItem(ctx context.Context, customerID string, item domain.CartItem) error {
	args := m.Called(ctx, customerID, item)
	return args.Error(0)
}

func (m *mockCartRepo) RemoveItem(ctx context.Context, customerID, productID string) error {
	args := m.Called(ctx, customerID, productID)
	return args.Error(0)
}

type mockAddressRepo struct {
	mock.Mock
}

func (m *mockAddressRepo) Create(ctx context.Context, address *domain.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *mockAddressRepo) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

// --- Stub price lookup ---

type stubPriceLookup struct {
	prices map[string]int64
	err    error
}

func (s *stubPriceLookup) UnitPrice(ctx context.Context, productID string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.prices[productID], nil
}

// --- Test helpers ---

type orderServiceFixture struct {
	svc       *OrderService
	pool      pgxmock.PgxPoolIface
	orders    *mockOrderRepo
	carts     *mockCartRepo
	addresses *mockAddressRepo
	prices    *stubPriceLookup
}

func newOrderService(t *testing.T) *orderServiceFixture {
	t.Helper()
	pool, err := database.NewMockPool()
	require.NoError(t, err)

	orders := new(mockOrderRepo)
	carts := new(mockCartRepo)
	addresses := new(mockAddressRepo)
	prices := &stubPriceLookup{prices: map[string]int64{}}

	inventoryRepo := new(mockInventoryRepo)
	inventory := NewInventoryService(inventoryRepo, inventoryRepo, pool, nil, nil, newTestLogger(), 0)
	svc := NewOrderService(orders, carts, addresses, inventory, prices, pool, nil, newTestLogger(), 30*time.Minute)

	return &orderServiceFixture{
		svc:       svc,
		pool:      pool,
		orders:    orders,
		carts:     carts,
		addresses: addresses,
		prices:    prices,
	}
}

func customerAddress(customerID string) *domain.Address {
	return &domain.Address{
		ID:            "addr-1",
		CustomerID:    customerID,
		RecipientName: "Lan Pham",
		Phone:         "0901234567",
		AddressLine:   "12 Hang Bong, Hoan Kiem, Ha Noi",
	}
}

// --- PlaceOrder ---

func TestPlaceOrder_SplitsLineAcrossBatches(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.addresses.On("GetByID", mock.Anything, "addr-1").Return(customerAddress("cust-1"), nil)
	f.carts.On("GetByCustomer", mock.Anything, "cust-1").Return(&domain.Cart{
		ID:         "cart-1",
		CustomerID: "cust-1",
		Items: []domain.CartItem{
			{ProductID: "prod-1", Quantity: 7, ProductName: "Greek Yogurt"},
		},
	}, nil)
	f.prices.prices["prod-1"] = 1000

	earlier := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)

	f.pool.ExpectBeginTx(txOpts)

	// FEFO allocation inside the checkout transaction.
	f.pool.ExpectQuery("SELECT id, batch_code, expires_at, quantity_remaining FROM inventory_batches .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "batch_code", "expires_at", "quantity_remaining"}).
				AddRow("batch-1", "LOT-A", earlier, 5).
				AddRow("batch-2", "LOT-B", later, 10),
		)
	f.pool.ExpectExec("UPDATE inventory_batches").
		WithArgs(5, "batch-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec("INSERT INTO inventory_adjustments").
		WithArgs(pgxmock.AnyArg(), "batch-1", "", -5, domain.AdjustmentReasonOrder, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("UPDATE inventory_batches").
		WithArgs(2, "batch-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec("INSERT INTO inventory_adjustments").
		WithArgs(pgxmock.AnyArg(), "batch-2", "", -2, domain.AdjustmentReasonOrder, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// Order, lines, pending payment, cart clear.
	f.pool.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), "cust-1", domain.OrderStatusPending, int64(7000),
			"Lan Pham", "0901234567", "12 Hang Bong, Hoan Kiem, Ha Noi",
			domain.PaymentMethodCOD, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("INSERT INTO order_lines").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "prod-1", "batch-1", 5, int64(1000), "Greek Yogurt", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("INSERT INTO order_lines").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "prod-1", "batch-2", 2, int64(1000), "Greek Yogurt", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("INSERT INTO payments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), domain.PaymentMethodCOD, int64(7000),
			domain.PaymentStatusPending, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("DELETE FROM cart_items").
		WithArgs("cart-1", []string{"prod-1"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	f.pool.ExpectCommit()

	order, err := f.svc.PlaceOrder(context.Background(), "cust-1", "addr-1", domain.PaymentMethodCOD)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(7000), order.TotalAmount)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "batch-1", order.Lines[0].BatchID)
	assert.Equal(t, 5, order.Lines[0].Quantity)
	assert.Equal(t, "batch-2", order.Lines[1].BatchID)
	assert.Equal(t, 2, order.Lines[1].Quantity)

	assert.NoError(t, f.pool.ExpectationsWereMet())
}

func TestPlaceOrder_ShortfallOnSecondLineRollsBackEverything(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.addresses.On("GetByID", mock.Anything, "addr-1").Return(customerAddress("cust-1"), nil)
	f.carts.On("GetByCustomer", mock.Anything, "cust-1").Return(&domain.Cart{
		ID:         "cart-1",
		CustomerID: "cust-1",
		Items: []domain.CartItem{
			{ProductID: "prod-1", Quantity: 2, ProductName: "Greek Yogurt"},
			{ProductID: "prod-2", Quantity: 4, ProductName: "Sourdough Loaf"},
		},
	}, nil)
	f.prices.prices["prod-1"] = 1000
	f.prices.prices["prod-2"] = 2500

	expires := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

	f.pool.ExpectBeginTx(txOpts)

	// First line allocates fine.
	f.pool.ExpectQuery("SELECT id, batch_code, expires_at, quantity_remaining FROM inventory_batches .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "batch_code", "expires_at", "quantity_remaining"}).
				AddRow("batch-1", "LOT-A", expires, 5),
		)
	f.pool.ExpectExec("UPDATE inventory_batches").
		WithArgs(2, "batch-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec("INSERT INTO inventory_adjustments").
		WithArgs(pgxmock.AnyArg(), "batch-1", "", -2, domain.AdjustmentReasonOrder, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// Second line cannot be covered, so the whole checkout rolls back.
	f.pool.ExpectQuery("SELECT id, batch_code, expires_at, quantity_remaining FROM inventory_batches .+ FOR UPDATE").
		WithArgs("prod-2").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "batch_code", "expires_at", "quantity_remaining"}).
				AddRow("batch-2", "LOT-B", expires, 1),
		)
	f.pool.ExpectRollback()

	_, err := f.svc.PlaceOrder(context.Background(), "cust-1", "addr-1", domain.PaymentMethodCOD)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.NoError(t, f.pool.ExpectationsWereMet())
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.addresses.On("GetByID", mock.Anything, "addr-1").Return(customerAddress("cust-1"), nil)
	f.carts.On("GetByCustomer", mock.Anything, "cust-1").Return(&domain.Cart{
		ID:         "cart-1",
		CustomerID: "cust-1",
		Items:      []domain.CartItem{},
	}, nil)

	_, err := f.svc.PlaceOrder(context.Background(), "cust-1", "addr-1", domain.PaymentMethodCOD)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
	assert.NoError(t, f.pool.ExpectationsWereMet())
}

func TestPlaceOrder_AddressBelongsToSomeoneElse(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.addresses.On("GetByID", mock.Anything, "addr-1").Return(customerAddress("cust-2"), nil)

	_, err := f.svc.PlaceOrder(context.Background(), "cust-1", "addr-1", domain.PaymentMethodCOD)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.carts.AssertNotCalled(t, "GetByCustomer")
}

func TestPlaceOrder_RejectsUnknownPaymentMethod(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	_, err := f.svc.PlaceOrder(context.Background(), "cust-1", "addr-1", "crypto")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.addresses.AssertNotCalled(t, "GetByID")
}

func TestPlaceOrder_PriceLookupFailureAbortsBeforeAllocation(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.addresses.On("GetByID", mock.Anything, "addr-1").Return(customerAddress("cust-1"), nil)
	f.carts.On("GetByCustomer", mock.Anything, "cust-1").Return(&domain.Cart{
		ID:         "cart-1",
		CustomerID: "cust-1",
		Items: []domain.CartItem{
			{ProductID: "prod-1", Quantity: 1, ProductName: "Greek Yogurt"},
		},
	}, nil)
	f.prices.err = apperrors.NotFound("price for product", "prod-1")

	_, err := f.svc.PlaceOrder(context.Background(), "cust-1", "addr-1", domain.PaymentMethodCard)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	// No transaction was ever opened.
	assert.NoError(t, f.pool.ExpectationsWereMet())
}

// --- CancelOrder ---

func TestCancelOrder_RestoresStockAndFailsPayment(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.pool.ExpectBeginTx(txOpts)
	f.pool.ExpectQuery("SELECT id, customer_id, status FROM orders WHERE id = .+ FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "customer_id", "status"}).
				AddRow("order-1", "cust-1", domain.OrderStatusPending),
		)
	f.pool.ExpectQuery("SELECT batch_id, product_id, quantity").
		WithArgs("order-1").
		WillReturnRows(
			pgxmock.NewRows([]string{"batch_id", "product_id", "quantity"}).
				AddRow("batch-1", "prod-1", 5).
				AddRow("batch-2", "prod-1", 2),
		)

	// Restock line 1.
	f.pool.ExpectQuery("SELECT id, product_id, batch_code, expires_at, quantity_received, quantity_remaining FROM inventory_batches WHERE id = .+ FOR UPDATE").
		WithArgs("batch-1").
		WillReturnRows(lockedBatchRows("batch-1", "prod-1", 10, 0))
	f.pool.ExpectExec("UPDATE inventory_batches").
		WithArgs(5, "batch-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec("INSERT INTO inventory_adjustments").
		WithArgs(pgxmock.AnyArg(), "batch-1", "", 5, domain.AdjustmentReasonRestock, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// Restock line 2.
	f.pool.ExpectQuery("SELECT id, product_id, batch_code, expires_at, quantity_received, quantity_remaining FROM inventory_batches WHERE id = .+ FOR UPDATE").
		WithArgs("batch-2").
		WillReturnRows(lockedBatchRows("batch-2", "prod-1", 10, 8))
	f.pool.ExpectExec("UPDATE inventory_batches").
		WithArgs(10, "batch-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec("INSERT INTO inventory_adjustments").
		WithArgs(pgxmock.AnyArg(), "batch-2", "", 2, domain.AdjustmentReasonRestock, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	f.pool.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusCanceled, "payment timeout", "order-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec("UPDATE payments").
		WithArgs(domain.PaymentStatusFailed, "order-1", domain.PaymentStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectCommit()

	order, err := f.svc.CancelOrder(context.Background(), "order-1", "payment timeout")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, order.Status)
	assert.Equal(t, "payment timeout", order.CanceledReason)
	assert.NoError(t, f.pool.ExpectationsWereMet())
}

func TestCancelOrder_DeliveredOrderRefused(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.pool.ExpectBeginTx(txOpts)
	f.pool.ExpectQuery("SELECT id, customer_id, status FROM orders WHERE id = .+ FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "customer_id", "status"}).
				AddRow("order-1", "cust-1", domain.OrderStatusDelivered),
		)
	f.pool.ExpectRollback()

	_, err := f.svc.CancelOrder(context.Background(), "order-1", "changed my mind")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, f.pool.ExpectationsWereMet())
}

func TestCancelOrder_NotFound(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.pool.ExpectBeginTx(txOpts)
	f.pool.ExpectQuery("SELECT id, customer_id, status FROM orders WHERE id = .+ FOR UPDATE").
		WithArgs("order-missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "customer_id", "status"}))
	f.pool.ExpectRollback()

	_, err := f.svc.CancelOrder(context.Background(), "order-missing", "whatever")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, f.pool.ExpectationsWereMet())
}

// --- UpdateOrderStatus ---

func TestUpdateOrderStatus_ValidTransition(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.orders.On("GetByID", mock.Anything, "order-1").Return(&domain.Order{
		ID:     "order-1",
		Status: domain.OrderStatusConfirmed,
	}, nil)
	f.orders.On("UpdateStatus", mock.Anything, "order-1", domain.OrderStatusProcessing).Return(nil)

	order, err := f.svc.UpdateOrderStatus(context.Background(), "order-1", domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	f.orders.AssertExpectations(t)
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.orders.On("GetByID", mock.Anything, "order-1").Return(&domain.Order{
		ID:     "order-1",
		Status: domain.OrderStatusPending,
	}, nil)

	_, err := f.svc.UpdateOrderStatus(context.Background(), "order-1", domain.OrderStatusDelivered)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.orders.AssertNotCalled(t, "UpdateStatus")
}

func TestUpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	_, err := f.svc.UpdateOrderStatus(context.Background(), "order-1", "teleported")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.orders.AssertNotCalled(t, "GetByID")
}

// --- ListOrders ---

func TestListOrders_InvalidStatusFilter(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	_, _, err := f.svc.ListOrders(context.Background(), repository.OrderFilter{Status: "lost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.orders.AssertNotCalled(t, "List")
}

// --- CancelStalePendingOrders ---

func TestCancelStalePendingOrders_CancelsEach(t *testing.T) {
	f := newOrderService(t)
	defer f.pool.Close()

	f.orders.On("ListStalePending", mock.Anything, mock.AnythingOfType("time.Time"), 100).
		Return([]string{"order-1"}, nil)

	f.pool.ExpectBeginTx(txOpts)
	f.pool.ExpectQuery("SELECT id, customer_id, status FROM orders WHERE id = .+ FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "customer_id", "status"}).
				AddRow("order-1", "cust-1", domain.OrderStatusPending),
		)
	f.pool.ExpectQuery("SELECT batch_id, product_id, quantity").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows([]string{"batch_id", "product_id", "quantity"}))
	f.pool.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusCanceled, "payment timeout", "order-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec("UPDATE payments").
		WithArgs(domain.PaymentStatusFailed, "order-1", domain.PaymentStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectCommit()

	canceled, err := f.svc.CancelStalePendingOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, canceled)
	assert.NoError(t, f.pool.ExpectationsWereMet())
}
