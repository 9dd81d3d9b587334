package domain

import "time"

// InventoryBatch is a discrete lot of perishable stock for a single product.
// Rows are never deleted; a fully consumed or destroyed batch keeps its
// QuantityReceived for audit while QuantityRemaining drops to zero.
type InventoryBatch struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	BatchCode         string    `json:"batch_code"`
	ReceivedAt        time.Time `json:"received_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	QuantityReceived  int       `json:"quantity_received"`
	QuantityRemaining int       `json:"quantity_remaining"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasStock reports whether the batch still has sellable quantity.
func (b *InventoryBatch) HasStock() bool {
	return b.QuantityRemaining > 0
}

// Expired reports whether the batch is past its expiration at the given time.
func (b *InventoryBatch) Expired(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}

// AllocatedBatch records how much of an allocation a single batch satisfied.
// It is transient: allocations are persisted as order lines, not as rows of
// their own.
type AllocatedBatch struct {
	BatchID   string    `json:"batch_id"`
	BatchCode string    `json:"batch_code"`
	ExpiresAt time.Time `json:"expires_at"`
	Quantity  int       `json:"quantity"`
}

// StockInfo is the availability summary for a product across all its batches.
type StockInfo struct {
	ProductID         string     `json:"product_id"`
	TotalAvailable    int        `json:"total_available"`
	SoonestExpiration *time.Time `json:"soonest_expiration,omitempty"`
}
