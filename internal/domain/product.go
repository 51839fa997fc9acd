package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxProductImages is the maximum number of images a product listing may carry.
const MaxProductImages = 4

// Product represents a listing in the marketplace catalog. Images is an
// ordered sequence of 1 to MaxProductImages image references; the first
// entry is the one snapshotted into order line items.
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SellerID    uuid.UUID       `json:"seller_id" db:"seller_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	Images      []string        `json:"images"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductUpdate carries a partial edit of a product listing. Nil fields are
// left untouched; a non-nil Images slice replaces the whole image list.
type ProductUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Images      []string         `json:"images"`
}
