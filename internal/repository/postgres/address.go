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

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	pool database.DBTX
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool database.DBTX) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// Create inserts a new address book entry.
func (r *AddressRepository) Create(ctx context.Context, address *domain.Address) error {
	query := `
		INSERT INTO addresses (id, customer_id, recipient_name, phone, address_line, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		address.ID,
		address.CustomerID,
		address.RecipientName,
		address.Phone,
		address.AddressLine,
		address.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create address: %w", err)
	}

	return nil
}

// GetByID retrieves an address by its unique identifier.
func (r *AddressRepository) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	query := `
		SELECT id, customer_id, recipient_name, phone, address_line, created_at
		FROM addresses
		WHERE id = $1`

	var a domain.Address
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.CustomerID,
		&a.RecipientName,
		&a.Phone,
		&a.AddressLine,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("address", id)
		}
		return nil, fmt.Errorf("get address by id: %w", err)
	}

	return &a, nil
}
