package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
	"github.com/thuannguyen2034/food-market-sub000/internal/event"
	"github.com/thuannguyen2034/food-market-sub000/internal/pricing"
	"github.com/thuannguyen2034/food-market-sub000/internal/repository"
	"github.com/thuannguyen2034/food-market-sub000/pkg/database"
	apperrors "github.com/thuannguyen2034/food-market-sub000/pkg/errors"
)

// OrderService implements the checkout transaction and order lifecycle.
type OrderService struct {
	orderRepo      repository.OrderRepository
	cartRepo       repository.CartRepository
	addressRepo    repository.AddressRepository
	inventory      *InventoryService
	pricing        pricing.Lookup
	pool           database.DBTX
	producer       *event.Producer
	logger         *slog.Logger
	paymentTimeout time.Duration
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	addressRepo repository.AddressRepository,
	inventory *InventoryService,
	priceLookup pricing.Lookup,
	pool database.DBTX,
	producer *event.Producer,
	logger *slog.Logger,
	paymentTimeout time.Duration,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		cartRepo:       cartRepo,
		addressRepo:    addressRepo,
		inventory:      inventory,
		pricing:        priceLookup,
		pool:           pool,
		producer:       producer,
		logger:         logger,
		paymentTimeout: paymentTimeout,
	}
}

// PlaceOrder converts the customer's cart into a pending order. Price lookup
// happens before the transaction opens (it is read-only and keeps row locks
// short); everything that writes happens in one transaction: FEFO allocation
// per cart line, order and line inserts, the pending payment record, and the
// cart clear. Any failure rolls the whole thing back.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID, addressID, paymentMethod string) (*domain.Order, error) {
	if customerID == "" {
		return nil, apperrors.InvalidInput("customer_id is required")
	}
	if !domain.IsValidPaymentMethod(paymentMethod) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid payment method %q", paymentMethod))
	}

	address, err := s.addressRepo.GetByID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("resolve delivery address: %w", err)
	}
	if address.CustomerID != customerID {
		return nil, apperrors.NotFound("address", addressID)
	}

	cart, err := s.cartRepo.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.Empty() {
		return nil, apperrors.EmptyCart(customerID)
	}

	// Pin one price per distinct product for the whole checkout.
	prices := make(map[string]int64, len(cart.Items))
	for _, item := range cart.Items {
		if _, ok := prices[item.ProductID]; ok {
			continue
		}
		price, err := s.pricing.UnitPrice(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price product %s: %w", item.ProductID, err)
		}
		prices[item.ProductID] = price
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin checkout transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New().String(),
		CustomerID:      customerID,
		Status:          domain.OrderStatusPending,
		DeliveryName:    address.RecipientName,
		DeliveryPhone:   address.Phone,
		DeliveryAddress: address.AddressLine,
		PaymentMethod:   paymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	productIDs := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)

		allocations, err := s.inventory.AllocateInTx(ctx, tx, item.ProductID, item.Quantity, &order.ID)
		if err != nil {
			return nil, err
		}

		unitPrice := prices[item.ProductID]
		for _, alloc := range allocations {
			line := domain.OrderLine{
				ID:               uuid.New().String(),
				OrderID:          order.ID,
				ProductID:        item.ProductID,
				BatchID:          alloc.BatchID,
				Quantity:         alloc.Quantity,
				UnitPrice:        unitPrice,
				ProductName:      item.ProductName,
				ProductThumbnail: item.ProductThumbnail,
			}
			order.Lines = append(order.Lines, line)
			order.TotalAmount += line.Subtotal()
		}
	}

	orderQuery := `
		INSERT INTO orders (id, customer_id, status, total_amount, delivery_name, delivery_phone, delivery_address,
			payment_method, canceled_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, orderQuery,
		order.ID,
		order.CustomerID,
		order.Status,
		order.TotalAmount,
		order.DeliveryName,
		order.DeliveryPhone,
		order.DeliveryAddress,
		order.PaymentMethod,
		order.CanceledReason,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (id, order_id, product_id, batch_id, quantity, unit_price, product_name, product_thumbnail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, line := range order.Lines {
		_, err = tx.Exec(ctx, lineQuery,
			line.ID,
			line.OrderID,
			line.ProductID,
			line.BatchID,
			line.Quantity,
			line.UnitPrice,
			line.ProductName,
			line.ProductThumbnail,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
	}

	paymentQuery := `
		INSERT INTO payments (id, order_id, method, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO NOTHING`

	_, err = tx.Exec(ctx, paymentQuery,
		uuid.New().String(),
		order.ID,
		paymentMethod,
		order.TotalAmount,
		domain.PaymentStatusPending,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pending payment: %w", err)
	}

	// Clear only the items this order consumed. Anything added to the cart
	// after it was read survives for the next checkout.
	if cart.ID != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = ANY($2)`, cart.ID, productIDs); err != nil {
			return nil, fmt.Errorf("clear ordered cart items: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit checkout transaction: %w", err)
	}

	s.inventory.InvalidateAvailability(ctx, productIDs...)

	if s.producer != nil {
		if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.created event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("customer_id", customerID),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("line_count", len(order.Lines)),
	)

	return order, nil
}

// GetOrder retrieves an order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListOrders returns orders matching the filter.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Status != "" && !domain.IsValidStatus(filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", filter.Status))
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateOrderStatus moves an order along its lifecycle, enforcing the
// transition rules. Cancellation goes through CancelOrder so stock is
// restored.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}

	if status == domain.OrderStatusCanceled {
		return s.CancelOrder(ctx, orderID, "canceled by operator")
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	if !order.CanTransitionTo(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot transition order from %s to %s", order.Status, status))
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	oldStatus := order.Status
	order.Status = status

	if s.producer != nil {
		if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", orderID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", status),
	)

	return order, nil
}

// ConfirmOrder marks a pending order as confirmed once its payment settles.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.UpdateOrderStatus(ctx, orderID, domain.OrderStatusConfirmed)
}

// CancelOrder cancels an order and restores every allocated quantity to its
// batch in one transaction. The order row is locked so a concurrent cancel
// or confirm cannot interleave.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin cancel transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockQuery := `
		SELECT id, customer_id, status
		FROM orders
		WHERE id = $1
		FOR UPDATE`

	var order domain.Order
	if err := tx.QueryRow(ctx, lockQuery, orderID).Scan(&order.ID, &order.CustomerID, &order.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("lock order for cancel: %w", err)
	}

	if !order.Cancelable() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot cancel order in status %s", order.Status))
	}

	linesQuery := `
		SELECT batch_id, product_id, quantity
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id`

	rows, err := tx.Query(ctx, linesQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines for cancel: %w", err)
	}

	type restockLine struct {
		batchID   string
		productID string
		quantity  int
	}
	var lines []restockLine
	for rows.Next() {
		var l restockLine
		if err := rows.Scan(&l.batchID, &l.productID, &l.quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order line for cancel: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines for cancel: %w", err)
	}

	productIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, err := s.inventory.RestoreStockInTx(ctx, tx, line.batchID, line.quantity, &orderID); err != nil {
			return nil, fmt.Errorf("restore stock for batch %s: %w", line.batchID, err)
		}
		productIDs = append(productIDs, line.productID)
	}

	updateQuery := `
		UPDATE orders
		SET status = $1, canceled_reason = $2, updated_at = NOW()
		WHERE id = $3`

	if _, err := tx.Exec(ctx, updateQuery, domain.OrderStatusCanceled, reason, orderID); err != nil {
		return nil, fmt.Errorf("mark order canceled: %w", err)
	}

	paymentQuery := `
		UPDATE payments
		SET status = $1
		WHERE order_id = $2 AND status = $3`

	if _, err := tx.Exec(ctx, paymentQuery, domain.PaymentStatusFailed, orderID, domain.PaymentStatusPending); err != nil {
		return nil, fmt.Errorf("fail pending payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel transaction: %w", err)
	}

	order.Status = domain.OrderStatusCanceled
	order.CanceledReason = reason

	s.inventory.InvalidateAvailability(ctx, productIDs...)

	if s.producer != nil {
		if err := s.producer.PublishOrderCanceled(ctx, &order, reason); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.canceled event",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order canceled",
		slog.String("order_id", orderID),
		slog.String("reason", reason),
		slog.Int("restocked_lines", len(lines)),
	)

	return &order, nil
}

// CancelStalePendingOrders cancels orders that have waited for payment past
// the configured timeout, restoring their stock. It returns how many orders
// were canceled.
func (s *OrderService) CancelStalePendingOrders(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.paymentTimeout)

	ids, err := s.orderRepo.ListStalePending(ctx, cutoff, 100)
	if err != nil {
		return 0, fmt.Errorf("list stale pending orders: %w", err)
	}

	canceled := 0
	for _, id := range ids {
		if _, err := s.CancelOrder(ctx, id, "payment timeout"); err != nil {
			s.logger.ErrorContext(ctx, "failed to cancel stale pending order",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		canceled++
	}

	if canceled > 0 {
		s.logger.InfoContext(ctx, "canceled stale pending orders",
			slog.Int("canceled_count", canceled),
			slog.Int("total_stale", len(ids)),
		)
	}

	return canceled, nil
}
