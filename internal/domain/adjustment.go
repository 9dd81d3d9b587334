package domain

import "time"

// Adjustment reasons.
const (
	AdjustmentReasonOrder     = "order"
	AdjustmentReasonManual    = "manual"
	AdjustmentReasonDestroyed = "destroyed"
	AdjustmentReasonRestock   = "restock"
)

// InventoryAdjustment is one append-only entry in a batch's quantity history.
// Delta is negative for consumption and destruction, positive for restocks.
// ReferenceID points at the order (or other trigger) that caused the change,
// when there is one.
type InventoryAdjustment struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	Delta       int       `json:"delta"`
	Reason      string    `json:"reason"`
	ReferenceID *string   `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidAdjustmentReasons returns the set of valid adjustment reasons.
func ValidAdjustmentReasons() []string {
	return []string{AdjustmentReasonOrder, AdjustmentReasonManual, AdjustmentReasonDestroyed, AdjustmentReasonRestock}
}

// IsValidAdjustmentReason checks whether the given reason is valid.
func IsValidAdjustmentReason(reason string) bool {
	for _, r := range ValidAdjustmentReasons() {
		if r == reason {
			return true
		}
	}
	return false
}
