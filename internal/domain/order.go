package domain

import "time"

// Order status constants.
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusProcessing     = "processing"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCanceled       = "canceled"
)

// Order represents a customer order. Delivery fields are snapshots of the
// address chosen at checkout, so later edits to the address book do not
// rewrite order history.
type Order struct {
	ID              string      `json:"id"`
	CustomerID      string      `json:"customer_id"`
	Status          string      `json:"status"`
	Lines           []OrderLine `json:"lines"`
	TotalAmount     int64       `json:"total_amount"`
	DeliveryName    string      `json:"delivery_name"`
	DeliveryPhone   string      `json:"delivery_phone"`
	DeliveryAddress string      `json:"delivery_address"`
	PaymentMethod   string      `json:"payment_method"`
	CanceledReason  string      `json:"canceled_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderLine ties an ordered quantity to the specific inventory batch that
// satisfied it. A single cart line can fan out into several order lines when
// the allocation spans batches. Price and product fields are snapshots taken
// at checkout.
type OrderLine struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	ProductID        string `json:"product_id"`
	BatchID          string `json:"batch_id"`
	Quantity         int    `json:"quantity"`
	UnitPrice        int64  `json:"unit_price"`
	ProductName      string `json:"product_name"`
	ProductThumbnail string `json:"product_thumbnail,omitempty"`
}

// Subtotal returns the line quantity priced at the snapshotted unit price.
func (l *OrderLine) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusCanceled,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid. Canceled is
// reachable from every pre-delivery state; delivered and canceled are terminal.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCanceled},
		OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusCanceled},
		OrderStatusProcessing:     {OrderStatusOutForDelivery, OrderStatusCanceled},
		OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCanceled},
		OrderStatusDelivered:      {},
		OrderStatusCanceled:       {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// Cancelable reports whether the order can still be canceled and restocked.
func (o *Order) Cancelable() bool {
	return o.CanTransitionTo(OrderStatusCanceled)
}
