package transport

import (
	"net/http"

	"bazaar/internal/domain"
	"bazaar/internal/middleware"
	"bazaar/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartItemPayload is one submitted cart line. Name, images, unit price and
// seller are snapshotted into the order exactly as sent.
type CartItemPayload struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	SellerID  uuid.UUID       `json:"seller_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Images    []string        `json:"images"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
}

// ShippingAddressPayload is the structured delivery address
type ShippingAddressPayload struct {
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// CreateOrderRequest represents the order submission payload
type CreateOrderRequest struct {
	OrderItems       []CartItemPayload      `json:"order_items" validate:"required,min=1,dive"`
	ShippingAddress  ShippingAddressPayload `json:"shipping_address" validate:"required"`
	TotalPrice       decimal.Decimal        `json:"total_price"`
	PaymentReference string                 `json:"payment_reference" validate:"required"`
}

// CreatePaymentIntentRequest asks the gateway for a card authorization
type CreatePaymentIntentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// CreatePaymentIntentResponse returns the client-usable authorization
type CreatePaymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService   service.OrderService
	paymentService service.PaymentService
	logger         *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, paymentService service.PaymentService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		paymentService: paymentService,
		logger:         logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, sellerMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.Create)
		r.Get("/myorders", h.ListMine)
		r.Post("/create-payment-intent", h.CreatePaymentIntent)

		r.Group(func(r chi.Router) {
			r.Use(sellerMiddleware)
			r.Get("/seller", h.ListForSeller)
		})
	})
}

// Create places an order from the submitted cart
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart := make([]service.CartLineItem, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		cart = append(cart, service.CartLineItem{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Name:      item.Name,
			Images:    item.Images,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orderService.PlaceOrder(
		r.Context(),
		buyerID,
		cart,
		domain.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		req.TotalPrice,
		req.PaymentReference,
	)
	if err != nil {
		switch err {
		case service.ErrEmptyCart, service.ErrIncompleteAddress:
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		h.logger.Error("Failed to place order",
			zap.String("buyer_id", buyerID.String()),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order, please try again")
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.Int("items", len(order.Items)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListMine returns the authenticated buyer's orders
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orderService.ListOrdersForBuyer(r.Context(), buyerID)
	if err != nil {
		h.logger.Error("Failed to list buyer orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders, please try again")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// ListForSeller returns the seller-scoped view of orders containing the
// seller's products
func (h *OrderHandler) ListForSeller(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	views, err := h.orderService.ListOrdersForSeller(r.Context(), sellerID)
	if err != nil {
		h.logger.Error("Failed to list seller orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders, please try again")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, views)
}

// CreatePaymentIntent obtains a card authorization from the payment gateway
func (h *OrderHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentIntentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Gateways take amounts in minor units
	minorUnits := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	intent, err := h.paymentService.CreatePaymentIntent(r.Context(), minorUnits)
	if err != nil {
		if err == service.ErrPaymentNotConfigured {
			middleware.RespondWithError(w, http.StatusInternalServerError, "payment gateway is not configured")
			return
		}

		h.logger.Error("Payment intent creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "payment service unavailable, please try again")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CreatePaymentIntentResponse{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	})
}
