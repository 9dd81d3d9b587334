package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
	apperrors "github.com/thuannguyen2034/food-market-sub000/pkg/errors"
	pkgkafka "github.com/thuannguyen2034/food-market-sub000/pkg/kafka"
)

// Kafka topics consumed by the market service.
const (
	TopicPaymentCompleted = "market.payment.completed"
	TopicPaymentFailed    = "market.payment.failed"
)

// OrderService defines the interface required by the event consumer.
type OrderService interface {
	ConfirmOrder(ctx context.Context, orderID string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error)
}

// PaymentCompletedData is the expected payload of a payment.completed event.
type PaymentCompletedData struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

// PaymentFailedData is the expected payload of a payment.failed event.
type PaymentFailedData struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}

// Consumer processes payment outcome events, moving orders out of pending.
type Consumer struct {
	service OrderService
	logger  *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(service OrderService, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandlePaymentCompleted confirms the order whose payment settled. An order
// that already left pending (for example canceled by the timeout job) makes
// the event a no-op rather than a retry loop.
func (c *Consumer) HandlePaymentCompleted(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentCompletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.completed data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing payment.completed event",
		slog.String("order_id", data.OrderID),
		slog.String("payment_id", data.PaymentID),
	)

	if _, err := c.service.ConfirmOrder(ctx, data.OrderID); err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			c.logger.WarnContext(ctx, "payment completed for order no longer pending",
				slog.String("order_id", data.OrderID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return fmt.Errorf("confirm order %s: %w", data.OrderID, err)
	}

	return nil
}

// HandlePaymentFailed cancels the order and restores its stock.
func (c *Consumer) HandlePaymentFailed(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentFailedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.failed data: %w", err)
	}

	reason := data.Reason
	if reason == "" {
		reason = "payment failed"
	}

	c.logger.InfoContext(ctx, "processing payment.failed event",
		slog.String("order_id", data.OrderID),
		slog.String("payment_id", data.PaymentID),
	)

	if _, err := c.service.CancelOrder(ctx, data.OrderID, reason); err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			c.logger.WarnContext(ctx, "payment failed for order that cannot be canceled",
				slog.String("order_id", data.OrderID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return fmt.Errorf("cancel order %s: %w", data.OrderID, err)
	}

	return nil
}
