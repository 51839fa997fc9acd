package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/events"
	"bazaar/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart         = errors.New("cart must contain at least one item")
	ErrIncompleteAddress = errors.New("shipping address requires address, city, postal code and country")
)

// CartLineItem is the typed boundary for one entry of a submitted cart. Name,
// unit price, images and seller reference are taken from the client and
// snapshotted verbatim into the order; they are not re-read from the catalog.
type CartLineItem struct {
	ProductID uuid.UUID
	SellerID  uuid.UUID
	Name      string
	Images    []string
	UnitPrice decimal.Decimal
	Quantity  int
}

// OrderService defines the interface for order placement and order views
type OrderService interface {
	PlaceOrder(ctx context.Context, buyerID uuid.UUID, cart []CartLineItem, shipping domain.ShippingAddress, totalPrice decimal.Decimal, paymentReference string) (*domain.Order, error)
	ListOrdersForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	ListOrdersForSeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.SellerOrderView, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// PlaceOrder turns a submitted cart into a persisted, paid order.
//
// The cart is trusted verbatim: names, unit prices and seller references are
// snapshotted exactly as sent, the recorded total is the caller-supplied one,
// and the payment reference is accepted as proof of payment without gateway
// verification. Stock is decremented per line with no precondition, so it can
// go negative, and decrements already applied are not rolled back if the
// order insert fails afterwards.
func (s *orderService) PlaceOrder(ctx context.Context, buyerID uuid.UUID, cart []CartLineItem, shipping domain.ShippingAddress, totalPrice decimal.Decimal, paymentReference string) (*domain.Order, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	if shipping.Address == "" || shipping.City == "" || shipping.PostalCode == "" || shipping.Country == "" {
		return nil, ErrIncompleteAddress
	}

	buyer, err := s.userRepo.FindByID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buyer: %w", err)
	}

	now := time.Now()

	items := make([]domain.OrderItem, 0, len(cart))
	for _, entry := range cart {
		image := ""
		if len(entry.Images) > 0 {
			image = entry.Images[0]
		}
		items = append(items, domain.OrderItem{
			ID:        uuid.New(),
			ProductID: entry.ProductID,
			SellerID:  entry.SellerID,
			Name:      entry.Name,
			Image:     image,
			UnitPrice: entry.UnitPrice,
			Quantity:  entry.Quantity,
		})
	}

	// Blind per-line decrement. An unknown product id is skipped silently;
	// any other store failure surfaces immediately and leaves earlier
	// decrements in place.
	for _, item := range items {
		err := s.productRepo.IncrementStock(ctx, item.ProductID, -item.Quantity)
		if err != nil && err != repository.ErrProductNotFound {
			return nil, fmt.Errorf("failed to decrement stock for product %s: %w", item.ProductID, err)
		}
	}

	order := &domain.Order{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		Items:           items,
		ShippingAddress: shipping,
		TotalPrice:      totalPrice,
		Paid:            true,
		PaidAt:          &now,
		PaymentResult: domain.PaymentResult{
			ID:         paymentReference,
			Status:     "succeeded",
			UpdateTime: now,
			Email:      buyer.Email,
		},
		CreatedAt: now,
	}

	if err := s.orderRepo.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.publishOrderCreated(ctx, order)

	return order, nil
}

// ListOrdersForBuyer retrieves the buyer's own orders, newest first
func (s *orderService) ListOrdersForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyer orders: %w", err)
	}
	return orders, nil
}

// ListOrdersForSeller derives the seller-scoped projection of every order
// containing the seller's products.
//
// Ownership is re-evaluated at query time against the catalog, not frozen at
// order time: if a product changes hands after purchase, its lines move to
// the new owner's view. Orders whose filtered item list comes up empty are
// dropped.
func (s *orderService) ListOrdersForSeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.SellerOrderView, error) {
	products, err := s.productRepo.FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seller products: %w", err)
	}

	owned := make(map[uuid.UUID]bool, len(products))
	productIDs := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		owned[p.ID] = true
		productIDs = append(productIDs, p.ID)
	}

	// No listings means no orders; an empty view is a valid state
	if len(productIDs) == 0 {
		return []*domain.SellerOrderView{}, nil
	}

	orders, err := s.orderRepo.FindByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load seller orders: %w", err)
	}

	buyers := make(map[uuid.UUID]*domain.User)

	views := make([]*domain.SellerOrderView, 0, len(orders))
	for _, order := range orders {
		sellerItems := make([]domain.OrderItem, 0, len(order.Items))
		subtotal := decimal.Zero
		for _, item := range order.Items {
			if !owned[item.ProductID] {
				continue
			}
			sellerItems = append(sellerItems, item)
			subtotal = subtotal.Add(item.Subtotal())
		}

		if len(sellerItems) == 0 {
			continue
		}

		buyer, ok := buyers[order.BuyerID]
		if !ok {
			buyer, err = s.userRepo.FindByID(ctx, order.BuyerID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve buyer %s: %w", order.BuyerID, err)
			}
			buyers[order.BuyerID] = buyer
		}

		views = append(views, &domain.SellerOrderView{
			OrderID:         order.ID,
			BuyerName:       buyer.Name,
			BuyerEmail:      buyer.Email,
			CreatedAt:       order.CreatedAt,
			ShippingAddress: order.ShippingAddress,
			Paid:            order.Paid,
			Items:           sellerItems,
			SellerSubtotal:  subtotal,
		})
	}

	return views, nil
}

// publishOrderCreated emits the order.created event. Failures are logged and
// never surfaced; the order is already durable at this point.
func (s *orderService) publishOrderCreated(ctx context.Context, order *domain.Order) {
	payload := events.OrderCreated{
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		TotalPrice: order.TotalPrice,
		OccurredAt: order.CreatedAt,
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, events.OrderCreatedItem{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	if err := s.publisher.Publish(ctx, events.TypeOrderCreated, order.ID.String(), payload); err != nil {
		s.logger.Warn("Failed to publish order created event",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}
