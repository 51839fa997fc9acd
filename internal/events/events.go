package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated = "order.created"
)

// OrderCreated is the payload published when an order has been persisted.
// Consumers get the order identity and a per-line summary; the full snapshot
// stays in the order store.
type OrderCreated struct {
	OrderID    uuid.UUID          `json:"order_id"`
	BuyerID    uuid.UUID          `json:"buyer_id"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	Items      []OrderCreatedItem `json:"items"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// OrderCreatedItem summarizes one order line
type OrderCreatedItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}
