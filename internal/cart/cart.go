// Package cart implements the client-owned cart and session state as an
// explicit object with defined transitions. Every mutation is followed by a
// snapshot write through the configured store, mirroring the browser client's
// save-after-each-change behavior.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound   = errors.New("item not in cart")
	ErrInvalidQty     = errors.New("quantity must be at least 1")
	ErrEmptySessionID = errors.New("session id must not be empty")
)

// Item is one cart entry. It carries the same client-trusted fields that are
// later submitted as a cart line item.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	Name      string          `json:"name"`
	Images    []string        `json:"images"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// State is the snapshot-able cart and session state
type State struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
	Items  []Item     `json:"items"`
}

// Store persists cart snapshots keyed by session id
type Store interface {
	Save(ctx context.Context, sessionID string, state State) error
	Load(ctx context.Context, sessionID string) (State, error)
	Delete(ctx context.Context, sessionID string) error
}

// Cart owns one session's state and writes a snapshot after every mutation
type Cart struct {
	sessionID string
	store     Store
	state     State
}

// New creates an empty cart for the session, backed by the given store
func New(sessionID string, store Store) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	return &Cart{
		sessionID: sessionID,
		store:     store,
		state:     State{Items: []Item{}},
	}, nil
}

// Restore loads a previously snapshotted cart for the session
func Restore(ctx context.Context, sessionID string, store Store) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	state, err := store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore cart: %w", err)
	}
	if state.Items == nil {
		state.Items = []Item{}
	}
	return &Cart{
		sessionID: sessionID,
		store:     store,
		state:     state,
	}, nil
}

// AddItem adds an item, merging quantity with an existing line for the same
// product
func (c *Cart) AddItem(ctx context.Context, item Item) error {
	if item.Quantity < 1 {
		return ErrInvalidQty
	}

	merged := false
	for i := range c.state.Items {
		if c.state.Items[i].ProductID == item.ProductID {
			c.state.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.state.Items = append(c.state.Items, item)
	}

	return c.snapshot(ctx)
}

// UpdateQuantity sets the quantity of an existing line
func (c *Cart) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQty
	}

	for i := range c.state.Items {
		if c.state.Items[i].ProductID == productID {
			c.state.Items[i].Quantity = quantity
			return c.snapshot(ctx)
		}
	}

	return ErrItemNotFound
}

// RemoveItem deletes a line from the cart
func (c *Cart) RemoveItem(ctx context.Context, productID uuid.UUID) error {
	for i := range c.state.Items {
		if c.state.Items[i].ProductID == productID {
			c.state.Items = append(c.state.Items[:i], c.state.Items[i+1:]...)
			return c.snapshot(ctx)
		}
	}

	return ErrItemNotFound
}

// SetUser attaches or clears the session user
func (c *Cart) SetUser(ctx context.Context, userID *uuid.UUID) error {
	c.state.UserID = userID
	return c.snapshot(ctx)
}

// Clear empties the cart, keeping the session user
func (c *Cart) Clear(ctx context.Context) error {
	c.state.Items = []Item{}
	return c.snapshot(ctx)
}

// Items returns a copy of the current lines in insertion order
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.state.Items))
	copy(out, c.state.Items)
	return out
}

// UserID returns the session user, if any
func (c *Cart) UserID() *uuid.UUID {
	return c.state.UserID
}

// Total returns the sum of unit price times quantity over all lines
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.state.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (c *Cart) snapshot(ctx context.Context) error {
	if err := c.store.Save(ctx, c.sessionID, c.state); err != nil {
		return fmt.Errorf("failed to snapshot cart: %w", err)
	}
	return nil
}
