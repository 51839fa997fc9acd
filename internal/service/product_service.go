package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotProductOwner = errors.New("not authorized to modify this product")
	ErrInvalidImages   = errors.New("a product needs between 1 and 4 images")
	ErrNegativePrice   = errors.New("price must not be negative")
	ErrNegativeStock   = errors.New("stock must not be negative")
)

// ProductService defines the interface for catalog business logic
type ProductService interface {
	Create(ctx context.Context, sellerID uuid.UUID, name, description string, price decimal.Decimal, stock int, images []string) (*domain.Product, error)
	Update(ctx context.Context, sellerID, productID uuid.UUID, update domain.ProductUpdate) (*domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, search string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// Create lists a new product under the given seller
func (s *productService) Create(ctx context.Context, sellerID uuid.UUID, name, description string, price decimal.Decimal, stock int, images []string) (*domain.Product, error) {
	if len(images) < 1 || len(images) > domain.MaxProductImages {
		return nil, ErrInvalidImages
	}
	if price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if stock < 0 {
		return nil, ErrNegativeStock
	}

	product := &domain.Product{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		Images:      images,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// Update applies a partial edit after verifying the caller owns the listing
func (s *productService) Update(ctx context.Context, sellerID, productID uuid.UUID, update domain.ProductUpdate) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product.SellerID != sellerID {
		return nil, ErrNotProductOwner
	}

	if update.Price != nil && update.Price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if update.Stock != nil && *update.Stock < 0 {
		return nil, ErrNegativeStock
	}
	if update.Images != nil && (len(update.Images) < 1 || len(update.Images) > domain.MaxProductImages) {
		return nil, ErrInvalidImages
	}

	if err := s.productRepo.UpdateFields(ctx, productID, update); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	updated, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}

	return updated, nil
}

// GetByID retrieves a single product
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// List retrieves the public catalog with search, pagination and sorting
func (s *productService) List(ctx context.Context, search string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.productRepo.List(ctx, search, page, pageSize, sortBy, sortOrder)
}

// ListBySeller retrieves a seller's own listings, newest first
func (s *productService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	return s.productRepo.FindBySeller(ctx, sellerID)
}
