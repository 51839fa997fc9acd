package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingAddress is the structured delivery address recorded on an order.
// All four fields are required at order creation.
type ShippingAddress struct {
	Address    string `json:"address" db:"ship_address"`
	City       string `json:"city" db:"ship_city"`
	PostalCode string `json:"postal_code" db:"ship_postal_code"`
	Country    string `json:"country" db:"ship_country"`
}

// PaymentResult records the external payment authorization attached to an
// order. The identifier is taken from the caller and trusted as proof of
// payment; it is never verified against the gateway.
type PaymentResult struct {
	ID         string    `json:"id" db:"payment_id"`
	Status     string    `json:"status" db:"payment_status"`
	UpdateTime time.Time `json:"update_time" db:"payment_update_time"`
	Email      string    `json:"email" db:"payment_email"`
}

// OrderItem is one line of an order. Every field is a snapshot copied from
// the submitted cart at order-creation time; later edits to the product never
// change it. Image holds only the first image of the product's image list.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	SellerID  uuid.UUID       `json:"seller_id" db:"seller_id"`
	Name      string          `json:"name" db:"name"`
	Image     string          `json:"image" db:"image"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity  int             `json:"quantity" db:"quantity"`
}

// Subtotal returns unit price times quantity for this line
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a placed order. Orders are immutable once created; there
// are no cancellation or fulfillment transitions.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	BuyerID         uuid.UUID       `json:"buyer_id" db:"buyer_id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	TotalPrice      decimal.Decimal `json:"total_price" db:"total_price"`
	Paid            bool            `json:"paid" db:"paid"`
	PaidAt          *time.Time      `json:"paid_at" db:"paid_at"`
	PaymentResult   PaymentResult   `json:"payment_result"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// SellerOrderView is the projection of an order reduced to a single seller's
// line items. Buyer exposure is limited to name and email.
type SellerOrderView struct {
	OrderID         uuid.UUID       `json:"order_id"`
	BuyerName       string          `json:"buyer_name"`
	BuyerEmail      string          `json:"buyer_email"`
	CreatedAt       time.Time       `json:"created_at"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Paid            bool            `json:"paid"`
	Items           []OrderItem     `json:"items"`
	SellerSubtotal  decimal.Decimal `json:"seller_subtotal"`
}
