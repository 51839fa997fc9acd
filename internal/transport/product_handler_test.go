package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bazaar/internal/domain"
	"bazaar/internal/middleware"
	"bazaar/internal/repository"
	"bazaar/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProductService struct {
	product   *domain.Product
	products  []*domain.Product
	total     int
	createErr error
	updateErr error
	getErr    error

	createdName string
}

func (s *stubProductService) Create(ctx context.Context, sellerID uuid.UUID, name, description string, price decimal.Decimal, stock int, images []string) (*domain.Product, error) {
	s.createdName = name
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &domain.Product{
		ID:       uuid.New(),
		SellerID: sellerID,
		Name:     name,
		Price:    price,
		Stock:    stock,
		Images:   images,
	}, nil
}

func (s *stubProductService) Update(ctx context.Context, sellerID, productID uuid.UUID, update domain.ProductUpdate) (*domain.Product, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.product, nil
}

func (s *stubProductService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.product, nil
}

func (s *stubProductService) List(ctx context.Context, search string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return s.products, s.total, nil
}

func (s *stubProductService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	return s.products, nil
}

func newProductRouter(products *stubProductService, userID uuid.UUID, role string) chi.Router {
	logger, _ := zap.NewDevelopment()
	handler := NewProductHandler(products, logger)

	router := chi.NewRouter()
	handler.RegisterRoutes(router, injectUser(userID, role), middleware.RequireSeller(logger))
	return router
}

func createProductBody() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"name":        "Clay Pot",
		"description": "Hand thrown",
		"price":       "12.50",
		"stock":       7,
		"images":      []string{"front.png", "side.png"},
	})
	return body
}

func TestCreateProductAsSeller(t *testing.T) {
	products := &stubProductService{}
	router := newProductRouter(products, uuid.New(), domain.RoleSeller)

	req := httptest.NewRequest("POST", "/api/products", bytes.NewReader(createProductBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Clay Pot", products.createdName)
}

func TestCreateProductForbiddenForBuyers(t *testing.T) {
	products := &stubProductService{}
	router := newProductRouter(products, uuid.New(), domain.RoleBuyer)

	req := httptest.NewRequest("POST", "/api/products", bytes.NewReader(createProductBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, products.createdName, "service must not be reached")
}

func TestCreateProductTooManyImages(t *testing.T) {
	products := &stubProductService{}
	router := newProductRouter(products, uuid.New(), domain.RoleSeller)

	body, _ := json.Marshal(map[string]interface{}{
		"name":        "Clay Pot",
		"description": "Hand thrown",
		"price":       "12.50",
		"stock":       7,
		"images":      []string{"a", "b", "c", "d", "e"},
	})
	req := httptest.NewRequest("POST", "/api/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProductNotFound(t *testing.T) {
	products := &stubProductService{getErr: repository.ErrProductNotFound}
	router := newProductRouter(products, uuid.New(), domain.RoleBuyer)

	req := httptest.NewRequest("GET", "/api/products/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProductNotOwner(t *testing.T) {
	products := &stubProductService{updateErr: service.ErrNotProductOwner}
	router := newProductRouter(products, uuid.New(), domain.RoleSeller)

	body, _ := json.Marshal(map[string]interface{}{"name": "Renamed"})
	req := httptest.NewRequest("PUT", "/api/products/"+uuid.New().String(), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListProductsPublic(t *testing.T) {
	products := &stubProductService{
		products: []*domain.Product{
			{ID: uuid.New(), Name: "Pot", Price: decimal.RequireFromString("10.00"), Images: []string{"a"}},
		},
		total: 1,
	}
	router := newProductRouter(products, uuid.New(), domain.RoleBuyer)

	// No auth context needed for the public catalog
	req := httptest.NewRequest("GET", "/api/products?search=pot&page=1&page_size=20", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Pot", resp.Products[0].Name)
}
