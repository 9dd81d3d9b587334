package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
	"github.com/thuannguyen2034/food-market-sub000/internal/repository"
	apperrors "github.com/thuannguyen2034/food-market-sub000/pkg/errors"
)

// CartService implements cart operations for the storefront.
type CartService struct {
	cartRepo repository.CartRepository
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, logger *slog.Logger) *CartService {
	return &CartService{cartRepo: cartRepo, logger: logger}
}

// GetCart returns the customer's cart, empty if they have none yet.
func (s *CartService) GetCart(ctx context.Context, customerID string) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// SetItem adds a product to the cart or replaces its quantity.
func (s *CartService) SetItem(ctx context.Context, customerID string, item domain.CartItem) (*domain.Cart, error) {
	if item.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if item.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	if err := s.cartRepo.UpsertItem(ctx, customerID, item); err != nil {
		return nil, fmt.Errorf("set cart item: %w", err)
	}

	return s.GetCart(ctx, customerID)
}

// RemoveItem deletes a product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, customerID, productID string) (*domain.Cart, error) {
	if err := s.cartRepo.RemoveItem(ctx, customerID, productID); err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	return s.GetCart(ctx, customerID)
}

// AddressService implements the delivery address book.
type AddressService struct {
	addressRepo repository.AddressRepository
	logger      *slog.Logger
}

// NewAddressService creates a new address service.
func NewAddressService(addressRepo repository.AddressRepository, logger *slog.Logger) *AddressService {
	return &AddressService{addressRepo: addressRepo, logger: logger}
}

// CreateAddress adds an entry to the customer's address book.
func (s *AddressService) CreateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	if address.CustomerID == "" {
		return nil, apperrors.InvalidInput("customer_id is required")
	}
	if address.RecipientName == "" {
		return nil, apperrors.InvalidInput("recipient_name is required")
	}
	if address.AddressLine == "" {
		return nil, apperrors.InvalidInput("address_line is required")
	}

	address.ID = uuid.New().String()
	address.CreatedAt = time.Now().UTC()

	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}

	s.logger.InfoContext(ctx, "address created",
		slog.String("address_id", address.ID),
		slog.String("customer_id", address.CustomerID),
	)

	return address, nil
}

// GetAddress retrieves an address by id.
func (s *AddressService) GetAddress(ctx context.Context, id string) (*domain.Address, error) {
	address, err := s.addressRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	return address, nil
}
