package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
	"github.com/thuannguyen2034/food-market-sub000/pkg/database"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
// Carts live in the same database as orders so checkout can clear the cart
// inside the order transaction.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetByCustomer retrieves the customer's cart with items. A customer with no
// cart yet gets an empty one back.
func (r *CartRepository) GetByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	query := `
		SELECT id, customer_id, created_at, updated_at
		FROM carts
		WHERE customer_id = $1`

	var c domain.Cart
	err := r.pool.QueryRow(ctx, query, customerID).Scan(&c.ID, &c.CustomerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.Cart{CustomerID: customerID, Items: []domain.CartItem{}}, nil
		}
		return nil, fmt.Errorf("get cart by customer: %w", err)
	}

	itemsQuery := `
		SELECT product_id, quantity, product_name, product_thumbnail
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY product_id`

	rows, err := r.pool.Query(ctx, itemsQuery, c.ID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.ProductName, &item.ProductThumbnail); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		c.Items = append(c.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart item rows: %w", err)
	}

	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}

	return &c, nil
}

// UpsertItem adds a product to the cart, creating the cart first if the
// customer does not have one, or replaces the quantity of an existing line.
func (r *CartRepository) UpsertItem(ctx context.Context, customerID string, item domain.CartItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()

	cartQuery := `
		INSERT INTO carts (id, customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (customer_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id`

	var cartID string
	if err := tx.QueryRow(ctx, cartQuery, uuid.New().String(), customerID, now).Scan(&cartID); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	itemQuery := `
		INSERT INTO cart_items (cart_id, product_id, quantity, product_name, product_thumbnail)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			product_name = EXCLUDED.product_name,
			product_thumbnail = EXCLUDED.product_thumbnail`

	_, err = tx.Exec(ctx, itemQuery, cartID, item.ProductID, item.Quantity, item.ProductName, item.ProductThumbnail)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// RemoveItem deletes a product from the cart. Removing an absent product is
// not an error.
func (r *CartRepository) RemoveItem(ctx context.Context, customerID, productID string) error {
	query := `
		DELETE FROM cart_items
		WHERE product_id = $2 AND cart_id = (SELECT id FROM carts WHERE customer_id = $1)`

	if _, err := r.pool.Exec(ctx, query, customerID, productID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	return nil
}
