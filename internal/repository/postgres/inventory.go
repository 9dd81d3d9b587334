package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
	"github.com/thuannguyen2034/food-market-sub000/pkg/database"
	apperrors "github.com/thuannguyen2034/food-market-sub000/pkg/errors"
)

// InventoryRepository implements both BatchRepository and AdjustmentRepository
// using PostgreSQL.
type InventoryRepository struct {
	pool database.DBTX
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(pool database.DBTX) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// ---------------------------------------------------------------------------
// BatchRepository implementation
// ---------------------------------------------------------------------------

// Create inserts a new batch row from a stock receipt.
func (r *InventoryRepository) Create(ctx context.Context, batch *domain.InventoryBatch) error {
	query := `
		INSERT INTO inventory_batches
			(id, product_id, batch_code, received_at, expires_at, quantity_received, quantity_remaining, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		batch.ID,
		batch.ProductID,
		batch.BatchCode,
		batch.ReceivedAt,
		batch.ExpiresAt,
		batch.QuantityReceived,
		batch.QuantityRemaining,
		batch.CreatedAt,
		batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	return nil
}

// GetByID retrieves a batch by its unique identifier.
func (r *InventoryRepository) GetByID(ctx context.Context, id string) (*domain.InventoryBatch, error) {
	query := `
		SELECT id, product_id, batch_code, received_at, expires_at, quantity_received, quantity_remaining, created_at, updated_at
		FROM inventory_batches
		WHERE id = $1`

	var b domain.InventoryBatch
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.ProductID,
		&b.BatchCode,
		&b.ReceivedAt,
		&b.ExpiresAt,
		&b.QuantityReceived,
		&b.QuantityRemaining,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("batch", id)
		}
		return nil, fmt.Errorf("get batch by id: %w", err)
	}

	return &b, nil
}

// ListByProduct returns all batches for a product ordered by expiration, the
// same order allocation consumes them in.
func (r *InventoryRepository) ListByProduct(ctx context.Context, productID string) ([]domain.InventoryBatch, error) {
	query := `
		SELECT id, product_id, batch_code, received_at, expires_at, quantity_received, quantity_remaining, created_at, updated_at
		FROM inventory_batches
		WHERE product_id = $1
		ORDER BY expires_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list batches by product: %w", err)
	}
	defer rows.Close()

	var batches []domain.InventoryBatch
	for rows.Next() {
		var b domain.InventoryBatch
		if err := rows.Scan(
			&b.ID,
			&b.ProductID,
			&b.BatchCode,
			&b.ReceivedAt,
			&b.ExpiresAt,
			&b.QuantityReceived,
			&b.QuantityRemaining,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}

	if batches == nil {
		batches = []domain.InventoryBatch{}
	}

	return batches, nil
}

// TotalAvailable returns the summed remaining quantity across batches that
// still hold stock. Unknown products yield zero.
func (r *InventoryRepository) TotalAvailable(ctx context.Context, productID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity_remaining), 0)
		FROM inventory_batches
		WHERE product_id = $1 AND quantity_remaining > 0`

	var total int
	if err := r.pool.QueryRow(ctx, query, productID).Scan(&total); err != nil {
		return 0, fmt.Errorf("total available: %w", err)
	}

	return total, nil
}

// StockInfo returns the summed remaining quantity together with the soonest
// expiration among batches that still hold stock. SoonestExpiration is nil
// when nothing is available.
func (r *InventoryRepository) StockInfo(ctx context.Context, productID string) (*domain.StockInfo, error) {
	query := `
		SELECT COALESCE(SUM(quantity_remaining), 0), MIN(expires_at)
		FROM inventory_batches
		WHERE product_id = $1 AND quantity_remaining > 0`

	info := domain.StockInfo{ProductID: productID}
	if err := r.pool.QueryRow(ctx, query, productID).Scan(&info.TotalAvailable, &info.SoonestExpiration); err != nil {
		return nil, fmt.Errorf("stock info: %w", err)
	}

	return &info, nil
}

// ---------------------------------------------------------------------------
// AdjustmentRepository implementation
// ---------------------------------------------------------------------------

// ListByBatch returns the adjustment history of a batch, newest first.
func (r *InventoryRepository) ListByBatch(ctx context.Context, batchID string, page, perPage int) ([]domain.InventoryAdjustment, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	offset := (page - 1) * perPage

	query := `
		SELECT id, batch_id, actor_id, delta, reason, reference_id, created_at,
			   count(*) OVER() AS total_count
		FROM inventory_adjustments
		WHERE batch_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, batchID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var (
		adjustments []domain.InventoryAdjustment
		totalCount  int
	)

	for rows.Next() {
		var a domain.InventoryAdjustment
		if err := rows.Scan(
			&a.ID,
			&a.BatchID,
			&a.ActorID,
			&a.Delta,
			&a.Reason,
			&a.ReferenceID,
			&a.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan adjustment row: %w", err)
		}
		adjustments = append(adjustments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate adjustment rows: %w", err)
	}

	if adjustments == nil {
		adjustments = []domain.InventoryAdjustment{}
	}

	return adjustments, totalCount, nil
}

// ---------------------------------------------------------------------------
// Transactional helpers (used by service layer)
// ---------------------------------------------------------------------------

// Pool returns the underlying connection pool for transactional operations in
// the service layer.
func (r *InventoryRepository) Pool() database.DBTX {
	return r.pool
}
