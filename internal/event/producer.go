package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
	pkgkafka "github.com/thuannguyen2034/food-market-sub000/pkg/kafka"
)

// Kafka topic constants for marketplace domain events.
const (
	TopicOrderCreated       = "market.order.created"
	TopicOrderStatusChanged = "market.order.status_changed"
	TopicOrderCanceled      = "market.order.canceled"
	TopicInventoryAdjusted  = "market.inventory.adjusted"
	TopicBatchDestroyed     = "market.inventory.batch_destroyed"
	TopicLowStock           = "market.inventory.low_stock"
)

// Aggregate type constants.
const (
	AggregateTypeOrder     = "order"
	AggregateTypeInventory = "inventory"
)

// Source identifier for events originating from this service.
const SourceMarketService = "market-service"

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID       string `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	TotalAmount   int64  `json:"total_amount"`
	PaymentMethod string `json:"payment_method"`
	LineCount     int    `json:"line_count"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
}

// OrderCanceledData is the payload for an order.canceled event.
type OrderCanceledData struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

// InventoryAdjustedData is the payload for an inventory.adjusted event.
type InventoryAdjustedData struct {
	BatchID   string `json:"batch_id"`
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	Remaining int    `json:"remaining"`
}

// BatchDestroyedData is the payload for an inventory.batch_destroyed event.
type BatchDestroyedData struct {
	BatchID           string    `json:"batch_id"`
	ProductID         string    `json:"product_id"`
	BatchCode         string    `json:"batch_code"`
	ExpiresAt         time.Time `json:"expires_at"`
	QuantityDestroyed int       `json:"quantity_destroyed"`
	Reason            string    `json:"reason"`
}

// LowStockData is the payload for an inventory.low_stock event.
type LowStockData struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
}

// Producer publishes marketplace domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		LineCount:     len(order.Lines),
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, SourceMarketService, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("customer_id", order.CustomerID),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, oldStatus string) error {
	data := OrderStatusChangedData{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		OldStatus:  oldStatus,
		NewStatus:  order.Status,
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, order.ID, AggregateTypeOrder, SourceMarketService, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	return nil
}

// PublishOrderCanceled publishes an order.canceled event.
func (p *Producer) PublishOrderCanceled(ctx context.Context, order *domain.Order, reason string) error {
	data := OrderCanceledData{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Reason:     reason,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCanceled, order.ID, AggregateTypeOrder, SourceMarketService, data)
	if err != nil {
		return fmt.Errorf("create order.canceled event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCanceled, event); err != nil {
		return fmt.Errorf("publish order.canceled event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.canceled event",
		slog.String("order_id", order.ID),
		slog.String("reason", reason),
	)

	return nil
}

// PublishInventoryAdjusted publishes an inventory.adjusted event.
func (p *Producer) PublishInventoryAdjusted(ctx context.Context, batch *domain.InventoryBatch, delta int, reason string) error {
	data := InventoryAdjustedData{
		BatchID:   batch.ID,
		ProductID: batch.ProductID,
		Delta:     delta,
		Reason:    reason,
		Remaining: batch.QuantityRemaining,
	}

	event, err := pkgkafka.NewEvent(TopicInventoryAdjusted, batch.ID, AggregateTypeInventory, SourceMarketService, data)
	if err != nil {
		return fmt.Errorf("create inventory.adjusted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicInventoryAdjusted, event); err != nil {
		return fmt.Errorf("publish inventory.adjusted event: %w", err)
	}

	return nil
}

// PublishBatchDestroyed publishes an inventory.batch_destroyed event.
func (p *Producer) PublishBatchDestroyed(ctx context.Context, batch *domain.InventoryBatch, destroyed int, reason string) error {
	data := BatchDestroyedData{
		BatchID:           batch.ID,
		ProductID:         batch.ProductID,
		BatchCode:         batch.BatchCode,
		ExpiresAt:         batch.ExpiresAt,
		QuantityDestroyed: destroyed,
		Reason:            reason,
	}

	event, err := pkgkafka.NewEvent(TopicBatchDestroyed, batch.ID, AggregateTypeInventory, SourceMarketService, data)
	if err != nil {
		return fmt.Errorf("create inventory.batch_destroyed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicBatchDestroyed, event); err != nil {
		return fmt.Errorf("publish inventory.batch_destroyed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published inventory.batch_destroyed event",
		slog.String("batch_id", batch.ID),
		slog.Int("quantity_destroyed", destroyed),
	)

	return nil
}

// PublishLowStock publishes an inventory.low_stock event.
func (p *Producer) PublishLowStock(ctx context.Context, productID string, available, threshold int) error {
	data := LowStockData{
		ProductID: productID,
		Available: available,
		Threshold: threshold,
	}

	event, err := pkgkafka.NewEvent(TopicLowStock, productID, AggregateTypeInventory, SourceMarketService, data)
	if err != nil {
		return fmt.Errorf("create inventory.low_stock event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicLowStock, event); err != nil {
		return fmt.Errorf("publish inventory.low_stock event: %w", err)
	}

	return nil
}
