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
	"github.com/thuannguyen2034/food-market-sub000/internal/repository"
	"github.com/thuannguyen2034/food-market-sub000/pkg/database"
	apperrors "github.com/thuannguyen2034/food-market-sub000/pkg/errors"
)

// InventoryService implements the business logic of the batch ledger:
// stock receipts, FEFO allocation, manual adjustments, destruction, and
// availability queries.
type InventoryService struct {
	batchRepo         repository.BatchRepository
	adjustmentRepo    repository.AdjustmentRepository
	pool              database.DBTX
	cache             repository.AvailabilityCache
	producer          *event.Producer
	logger            *slog.Logger
	lowStockThreshold int
}

// NewInventoryService creates a new inventory service. The cache may be nil,
// in which case availability reads always hit the database.
func NewInventoryService(
	batchRepo repository.BatchRepository,
	adjustmentRepo repository.AdjustmentRepository,
	pool database.DBTX,
	cache repository.AvailabilityCache,
	producer *event.Producer,
	logger *slog.Logger,
	lowStockThreshold int,
) *InventoryService {
	return &InventoryService{
		batchRepo:         batchRepo,
		adjustmentRepo:    adjustmentRepo,
		pool:              pool,
		cache:             cache,
		producer:          producer,
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
	}
}

// ReceiveBatch records a stock receipt as a new batch.
func (s *InventoryService) ReceiveBatch(ctx context.Context, productID, batchCode string, expiresAt time.Time, quantity int) (*domain.InventoryBatch, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}
	if !expiresAt.After(time.Now().UTC()) {
		return nil, apperrors.InvalidInput("expires_at must be in the future")
	}

	now := time.Now().UTC()
	batch := &domain.InventoryBatch{
		ID:                uuid.New().String(),
		ProductID:         productID,
		BatchCode:         batchCode,
		ReceivedAt:        now,
		ExpiresAt:         expiresAt,
		QuantityReceived:  quantity,
		QuantityRemaining: quantity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("receive batch: %w", err)
	}

	s.InvalidateAvailability(ctx, productID)

	s.logger.InfoContext(ctx, "batch received",
		slog.String("batch_id", batch.ID),
		slog.String("product_id", productID),
		slog.String("batch_code", batchCode),
		slog.Int("quantity", quantity),
		slog.Time("expires_at", expiresAt),
	)

	return batch, nil
}

// GetBatch retrieves a single batch.
func (s *InventoryService) GetBatch(ctx context.Context, batchID string) (*domain.InventoryBatch, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// ListBatches returns all batches for a product, soonest expiry first.
func (s *InventoryService) ListBatches(ctx context.Context, productID string) ([]domain.InventoryBatch, error) {
	batches, err := s.batchRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// ListAdjustments returns the adjustment history of a batch, newest first.
func (s *InventoryService) ListAdjustments(ctx context.Context, batchID string, page, perPage int) ([]domain.InventoryAdjustment, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	adjustments, total, err := s.adjustmentRepo.ListByBatch(ctx, batchID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list adjustments: %w", err)
	}

	return adjustments, total, nil
}

// GetStockAvailability returns the total sellable quantity for a product.
// Unknown products report zero. Reads go through the availability cache when
// one is configured; staleness is acceptable on this display path.
func (s *InventoryService) GetStockAvailability(ctx context.Context, productID string) (int, error) {
	if s.cache != nil {
		if available, ok, err := s.cache.Get(ctx, productID); err != nil {
			s.logger.WarnContext(ctx, "availability cache read failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		} else if ok {
			return available, nil
		}
	}

	available, err := s.batchRepo.TotalAvailable(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("get stock availability: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, productID, available); err != nil {
			s.logger.WarnContext(ctx, "availability cache write failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}

	return available, nil
}

// GetStockInfo returns the total availability together with the soonest
// expiration among batches that still hold stock. This always reads the
// database: expiry detail is not worth caching.
func (s *InventoryService) GetStockInfo(ctx context.Context, productID string) (*domain.StockInfo, error) {
	info, err := s.batchRepo.StockInfo(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get stock info: %w", err)
	}
	return info, nil
}

// Allocate consumes stock for a product from the soonest-expiring batches
// in its own transaction. On success it returns the per-batch allocation in
// consumption order.
func (s *InventoryService) Allocate(ctx context.Context, productID string, quantity int) ([]domain.AllocatedBatch, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin allocation transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	allocations, err := s.AllocateInTx(ctx, tx, productID, quantity, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit allocation transaction: %w", err)
	}

	s.InvalidateAvailability(ctx, productID)
	s.checkLowStock(ctx, productID)

	s.logger.InfoContext(ctx, "stock allocated",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
		slog.Int("batch_count", len(allocations)),
	)

	return allocations, nil
}

// AllocateInTx consumes stock inside the caller's transaction. Batches are
// locked in expiry order; if the locked total cannot cover the request the
// method fails with INSUFFICIENT_STOCK before any row is touched, leaving the
// caller free to roll back everything else it has done.
func (s *InventoryService) AllocateInTx(ctx context.Context, tx pgx.Tx, productID string, quantity int, referenceID *string) ([]domain.AllocatedBatch, error) {
	lockQuery := `
		SELECT id, batch_code, expires_at, quantity_remaining
		FROM inventory_batches
		WHERE product_id = $1 AND quantity_remaining > 0
		ORDER BY expires_at ASC, id ASC
		FOR UPDATE`

	rows, err := tx.Query(ctx, lockQuery, productID)
	if err != nil {
		return nil, fmt.Errorf("lock batches for allocation: %w", err)
	}

	type lockedBatch struct {
		id        string
		batchCode string
		expiresAt time.Time
		remaining int
	}

	var (
		batches   []lockedBatch
		available int
	)
	for rows.Next() {
		var b lockedBatch
		if err := rows.Scan(&b.id, &b.batchCode, &b.expiresAt, &b.remaining); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan locked batch: %w", err)
		}
		batches = append(batches, b)
		available += b.remaining
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked batches: %w", err)
	}

	if available < quantity {
		return nil, apperrors.InsufficientStock(productID, quantity, available)
	}

	updateQuery := `
		UPDATE inventory_batches
		SET quantity_remaining = quantity_remaining - $1, updated_at = NOW()
		WHERE id = $2`

	adjustmentQuery := `
		INSERT INTO inventory_adjustments (id, batch_id, actor_id, delta, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	var allocations []domain.AllocatedBatch
	remaining := quantity

	for _, b := range batches {
		if remaining == 0 {
			break
		}

		take := b.remaining
		if take > remaining {
			take = remaining
		}

		if _, err := tx.Exec(ctx, updateQuery, take, b.id); err != nil {
			return nil, fmt.Errorf("decrement batch %s: %w", b.id, err)
		}

		if _, err := tx.Exec(ctx, adjustmentQuery,
			uuid.New().String(), b.id, "", -take, domain.AdjustmentReasonOrder, referenceID,
		); err != nil {
			return nil, fmt.Errorf("record allocation adjustment for batch %s: %w", b.id, err)
		}

		allocations = append(allocations, domain.AllocatedBatch{
			BatchID:   b.id,
			BatchCode: b.batchCode,
			ExpiresAt: b.expiresAt,
			Quantity:  take,
		})
		remaining -= take
	}

	return allocations, nil
}

// AdjustStock applies a signed manual correction to a batch and appends it to
// the adjustment log. The resulting quantity must stay within
// [0, quantity_received].
func (s *InventoryService) AdjustStock(ctx context.Context, batchID string, delta int, reason, actorID string) (*domain.InventoryBatch, error) {
	if delta == 0 {
		return nil, apperrors.InvalidInput("delta must be non-zero")
	}
	if !domain.IsValidAdjustmentReason(reason) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid adjustment reason %q", reason))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin adjustment transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch, err := lockBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}

	newRemaining := batch.QuantityRemaining + delta
	if newRemaining < 0 || newRemaining > batch.QuantityReceived {
		return nil, apperrors.InvalidAdjustment(batchID, newRemaining)
	}

	if err := applyAdjustment(ctx, tx, batch, newRemaining, actorID, delta, reason, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit adjustment transaction: %w", err)
	}

	batch.QuantityRemaining = newRemaining

	s.InvalidateAvailability(ctx, batch.ProductID)
	s.publishAdjusted(ctx, batch, delta, reason)
	s.checkLowStock(ctx, batch.ProductID)

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("batch_id", batchID),
		slog.String("actor_id", actorID),
		slog.Int("delta", delta),
		slog.String("reason", reason),
		slog.Int("remaining", newRemaining),
	)

	return batch, nil
}

// DestroyBatch writes off everything left in a batch (spoilage, recall).
// Destroying a batch that is already empty fails; the batch row itself is
// kept for audit.
func (s *InventoryService) DestroyBatch(ctx context.Context, batchID, reason, actorID string) (*domain.InventoryBatch, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin destroy transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch, err := lockBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}

	if batch.QuantityRemaining <= 0 {
		return nil, apperrors.BatchEmpty(batchID)
	}

	destroyed := batch.QuantityRemaining
	if err := applyAdjustment(ctx, tx, batch, 0, actorID, -destroyed, domain.AdjustmentReasonDestroyed, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit destroy transaction: %w", err)
	}

	batch.QuantityRemaining = 0

	s.InvalidateAvailability(ctx, batch.ProductID)
	if s.producer != nil {
		if err := s.producer.PublishBatchDestroyed(ctx, batch, destroyed, reason); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish inventory.batch_destroyed event",
				slog.String("batch_id", batchID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.checkLowStock(ctx, batch.ProductID)

	s.logger.InfoContext(ctx, "batch destroyed",
		slog.String("batch_id", batchID),
		slog.String("product_id", batch.ProductID),
		slog.String("actor_id", actorID),
		slog.Int("quantity_destroyed", destroyed),
		slog.String("reason", reason),
	)

	return batch, nil
}

// RestoreStock returns previously allocated quantity to a batch, used when an
// order is canceled. The restored quantity may not push the batch above what
// it originally received.
func (s *InventoryService) RestoreStock(ctx context.Context, batchID string, quantity int, referenceID *string) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("quantity must be positive")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin restore transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	productID, err := s.RestoreStockInTx(ctx, tx, batchID, quantity, referenceID)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit restore transaction: %w", err)
	}

	s.InvalidateAvailability(ctx, productID)

	s.logger.InfoContext(ctx, "stock restored",
		slog.String("batch_id", batchID),
		slog.Int("quantity", quantity),
	)

	return nil
}

// RestoreStockInTx returns quantity to a batch inside the caller's
// transaction and reports the batch's product id for cache invalidation
// after commit.
func (s *InventoryService) RestoreStockInTx(ctx context.Context, tx pgx.Tx, batchID string, quantity int, referenceID *string) (string, error) {
	batch, err := lockBatch(ctx, tx, batchID)
	if err != nil {
		return "", err
	}

	newRemaining := batch.QuantityRemaining + quantity
	if newRemaining > batch.QuantityReceived {
		return "", apperrors.InvalidAdjustment(batchID, newRemaining)
	}

	if err := applyAdjustment(ctx, tx, batch, newRemaining, "", quantity, domain.AdjustmentReasonRestock, referenceID); err != nil {
		return "", err
	}

	return batch.ProductID, nil
}

// lockBatch loads a batch row under FOR UPDATE within the transaction.
func lockBatch(ctx context.Context, tx pgx.Tx, batchID string) (*domain.InventoryBatch, error) {
	query := `
		SELECT id, product_id, batch_code, expires_at, quantity_received, quantity_remaining
		FROM inventory_batches
		WHERE id = $1
		FOR UPDATE`

	var b domain.InventoryBatch
	err := tx.QueryRow(ctx, query, batchID).Scan(
		&b.ID,
		&b.ProductID,
		&b.BatchCode,
		&b.ExpiresAt,
		&b.QuantityReceived,
		&b.QuantityRemaining,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("batch", batchID)
		}
		return nil, fmt.Errorf("lock batch %s: %w", batchID, err)
	}

	return &b, nil
}

// applyAdjustment sets the batch's remaining quantity and appends the matching
// log entry. Callers have already validated the new quantity.
func applyAdjustment(ctx context.Context, tx pgx.Tx, batch *domain.InventoryBatch, newRemaining int, actorID string, delta int, reason string, referenceID *string) error {
	updateQuery := `
		UPDATE inventory_batches
		SET quantity_remaining = $1, updated_at = NOW()
		WHERE id = $2`

	if _, err := tx.Exec(ctx, updateQuery, newRemaining, batch.ID); err != nil {
		return fmt.Errorf("update batch %s quantity: %w", batch.ID, err)
	}

	adjustmentQuery := `
		INSERT INTO inventory_adjustments (id, batch_id, actor_id, delta, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	if _, err := tx.Exec(ctx, adjustmentQuery,
		uuid.New().String(), batch.ID, actorID, delta, reason, referenceID,
	); err != nil {
		return fmt.Errorf("record adjustment for batch %s: %w", batch.ID, err)
	}

	return nil
}

// InvalidateAvailability drops the cached availability for products after a
// committed mutation. Cache errors are logged, never surfaced. The order
// service calls this once its checkout transaction commits.
func (s *InventoryService) InvalidateAvailability(ctx context.Context, productIDs ...string) {
	if s.cache == nil || len(productIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, productIDs...); err != nil {
		s.logger.WarnContext(ctx, "availability cache invalidation failed",
			slog.Any("product_ids", productIDs),
			slog.String("error", err.Error()),
		)
	}
}

// publishAdjusted emits an inventory.adjusted event, logging failures.
func (s *InventoryService) publishAdjusted(ctx context.Context, batch *domain.InventoryBatch, delta int, reason string) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishInventoryAdjusted(ctx, batch, delta, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.adjusted event",
			slog.String("batch_id", batch.ID),
			slog.String("error", err.Error()),
		)
	}
}

// checkLowStock emits a low-stock event when a product's availability has
// fallen to or below the configured threshold.
func (s *InventoryService) checkLowStock(ctx context.Context, productID string) {
	if s.producer == nil || s.lowStockThreshold <= 0 {
		return
	}

	available, err := s.batchRepo.TotalAvailable(ctx, productID)
	if err != nil {
		s.logger.WarnContext(ctx, "low stock check failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return
	}

	if available <= s.lowStockThreshold {
		if err := s.producer.PublishLowStock(ctx, productID, available, s.lowStockThreshold); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish inventory.low_stock event",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}
}
