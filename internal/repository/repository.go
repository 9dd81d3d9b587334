package repository

import (
	"context"
	"time"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
)

// BatchRepository defines the interface for inventory batch persistence.
type BatchRepository interface {
	// Create inserts a new batch row from a stock receipt.
	Create(ctx context.Context, batch *domain.InventoryBatch) error

	// GetByID retrieves a batch by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.InventoryBatch, error)

	// ListByProduct returns all batches for a product, soonest expiry first.
	ListByProduct(ctx context.Context, productID string) ([]domain.InventoryBatch, error)

	// TotalAvailable returns the summed remaining quantity across batches
	// that still hold stock. Unknown products yield zero, not an error.
	TotalAvailable(ctx context.Context, productID string) (int, error)

	// StockInfo returns the summed remaining quantity together with the
	// soonest expiration among batches that still hold stock.
	StockInfo(ctx context.Context, productID string) (*domain.StockInfo, error)
}

// AdjustmentRepository defines the interface for the append-only adjustment log.
type AdjustmentRepository interface {
	// ListByBatch returns the adjustment history of a batch, newest first,
	// along with the total entry count for pagination.
	ListByBatch(ctx context.Context, batchID string, page, perPage int) ([]domain.InventoryAdjustment, int, error)
}

// OrderRepository defines the interface for order persistence.
type OrderRepository interface {
	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the filter, newest first, with total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus sets the order status. The caller is responsible for
	// transition validation.
	UpdateStatus(ctx context.Context, id, status string) error

	// ListStalePending returns ids of orders still pending after the cutoff.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	CustomerID string
	Status     string
	Page       int
	PerPage    int
}

// CartRepository defines the interface for cart persistence.
type CartRepository interface {
	// GetByCustomer retrieves the customer's cart with items. A customer
	// with no cart yet gets an empty one, not an error.
	GetByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)

	// UpsertItem adds a product to the cart or replaces its quantity.
	UpsertItem(ctx context.Context, customerID string, item domain.CartItem) error

	// RemoveItem deletes a product from the cart.
	RemoveItem(ctx context.Context, customerID, productID string) error
}

// AddressRepository defines the interface for the delivery address book.
type AddressRepository interface {
	// Create inserts a new address.
	Create(ctx context.Context, address *domain.Address) error

	// GetByID retrieves an address by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Address, error)
}

// AvailabilityCache caches per-product availability for display reads.
// Implementations may serve stale values; mutators invalidate after commit.
type AvailabilityCache interface {
	Get(ctx context.Context, productID string) (int, bool, error)
	Set(ctx context.Context, productID string, available int) error
	Invalidate(ctx context.Context, productIDs ...string) error
}
