package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bazaar/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository is the order store. Orders and their line-item snapshots
// are written together and never mutated afterwards.
type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]*domain.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Insert persists an order together with its line items. The order row and
// its items form one record and are committed together; stock adjustments are
// a separate concern and are not part of this write.
func (r *orderRepository) Insert(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			id, buyer_id,
			ship_address, ship_city, ship_postal_code, ship_country,
			total_price, paid, paid_at,
			payment_id, payment_status, payment_update_time, payment_email,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		order.ID,
		order.BuyerID,
		order.ShippingAddress.Address,
		order.ShippingAddress.City,
		order.ShippingAddress.PostalCode,
		order.ShippingAddress.Country,
		order.TotalPrice,
		order.Paid,
		order.PaidAt,
		order.PaymentResult.ID,
		order.PaymentResult.Status,
		order.PaymentResult.UpdateTime,
		order.PaymentResult.Email,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, position, product_id, seller_id, name, image, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		_, err = tx.ExecContext(
			ctx,
			itemQuery,
			item.ID,
			item.OrderID,
			i,
			item.ProductID,
			item.SellerID,
			item.Name,
			item.Image,
			item.UnitPrice,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// FindByID retrieves a single order with its line items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := orderSelect + ` WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// FindByBuyer retrieves a buyer's orders, newest first
func (r *orderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	query := orderSelect + ` WHERE buyer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders by buyer: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// FindByProductIDs retrieves every order that contains at least one line item
// for any of the given product ids, newest first
func (r *orderRepository) FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]*domain.Order, error) {
	if len(productIDs) == 0 {
		return []*domain.Order{}, nil
	}

	placeholders := make([]string, 0, len(productIDs))
	args := make([]interface{}, 0, len(productIDs))
	for i, id := range productIDs {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, id)
	}

	query := orderSelect + fmt.Sprintf(`
		WHERE id IN (
			SELECT DISTINCT order_id FROM order_items WHERE product_id IN (%s)
		)
		ORDER BY created_at DESC
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders by product ids: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

const orderSelect = `
	SELECT id, buyer_id,
	       ship_address, ship_city, ship_postal_code, ship_country,
	       total_price, paid, paid_at,
	       payment_id, payment_status, payment_update_time, payment_email,
	       created_at
	FROM orders
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var paymentID, paymentStatus, paymentEmail sql.NullString
	var paymentUpdateTime sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.ShippingAddress.Address,
		&order.ShippingAddress.City,
		&order.ShippingAddress.PostalCode,
		&order.ShippingAddress.Country,
		&order.TotalPrice,
		&order.Paid,
		&order.PaidAt,
		&paymentID,
		&paymentStatus,
		&paymentUpdateTime,
		&paymentEmail,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.PaymentResult.ID = paymentID.String
	order.PaymentResult.Status = paymentStatus.String
	order.PaymentResult.Email = paymentEmail.String
	if paymentUpdateTime.Valid {
		order.PaymentResult.UpdateTime = paymentUpdateTime.Time
	}

	return order, nil
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// attachItems loads the line items for the given orders, preserving insertion
// order within each order
func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	placeholders := make([]string, 0, len(orders))
	args := make([]interface{}, 0, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, o.ID)
	}

	query := fmt.Sprintf(`
		SELECT id, order_id, product_id, seller_id, name, image, unit_price, quantity
		FROM order_items
		WHERE order_id IN (%s)
		ORDER BY order_id, position ASC
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := domain.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.SellerID,
			&item.Name,
			&item.Image,
			&item.UnitPrice,
			&item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}
