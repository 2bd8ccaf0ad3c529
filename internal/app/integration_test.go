package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/lock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	userRepo := repository.NewUserRepository(testDB)
	categoryRepo := repository.NewCategoryRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	offerRepo := repository.NewOfferRepository(testDB)

	locker := lock.NewLocalLocker()
	charges := pricing.Charges{
		TaxRate:     decimal.RequireFromString("0.16"),
		ShippingFee: decimal.NewFromInt(100),
	}

	authService := service.NewAuthService(userRepo, nil, testSecret, 15*time.Minute, 7*24*time.Hour)
	categoryService := service.NewCategoryService(categoryRepo)
	productService := service.NewProductService(productRepo, categoryRepo)
	cartService := service.NewCartService(cartRepo, productRepo, locker, charges)
	discountService := service.NewDiscountService(offerRepo, orderRepo, productRepo, testDB, locker)
	orderService := service.NewOrderService(testDB, orderRepo, cartRepo, discountService, locker, charges, "ORD",
		service.WithStatusNotifier(hub))

	cfg := &config.Config{Server: config.ServerConfig{GinMode: gin.TestMode}}
	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewProductController(productService),
		controller.NewCategoryController(categoryService),
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService),
		controller.NewDiscountController(discountService, orderService),
		controller.NewWebSocketController(hub, nil),
		middleware.NewAuthMiddleware(testSecret, nil),
		cfg,
	)

	return &TestServer{Router: r.Setup(), DB: testDB}
}

func (ts *TestServer) do(t *testing.T, method, path, token string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	resp := map[string]interface{}{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func (ts *TestServer) register(t *testing.T, email string) string {
	t.Helper()
	w, resp := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return resp["tokens"].(map[string]interface{})["access_token"].(string)
}

// adminToken registers a user, promotes it in the database and logs in again for a token carrying the role.
func (ts *TestServer) adminToken(t *testing.T) string {
	t.Helper()
	ts.register(t, "admin@example.com")
	require.NoError(t, ts.DB.Model(&model.User{}).Where("email = ?", "admin@example.com").
		Update("role", model.RoleAdmin).Error)

	w, resp := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	return resp["tokens"].(map[string]interface{})["access_token"].(string)
}

func decimalField(t *testing.T, m map[string]interface{}, key string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(m[key]))
	require.NoError(t, err, key)
	return d
}

func TestCompleteCheckoutJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	admin := ts.adminToken(t)
	buyer := ts.register(t, "buyer@example.com")

	// catalog
	w, resp := ts.do(t, http.MethodPost, "/api/v1/categories", admin, map[string]string{"name": "Clothing"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	categoryID := resp["category"].(map[string]interface{})["id"]

	w, resp = ts.do(t, http.MethodPost, "/api/v1/products", admin, map[string]interface{}{
		"name":        "Linen Shirt",
		"sku":         "LS-001",
		"price":       "50.00",
		"stock":       10,
		"category_id": categoryID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	productID := uint(resp["product"].(map[string]interface{})["id"].(float64))

	w, _ = ts.do(t, http.MethodPost, "/api/v1/admin/offers", admin, map[string]interface{}{
		"name":           "Ten off",
		"code":           "SAVE10",
		"type":           "percentage",
		"discount_value": "10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp = ts.do(t, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["products"], 1)

	// cart
	w, _ = ts.do(t, http.MethodPost, "/api/v1/cart/items", buyer, map[string]interface{}{
		"product_id": productID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp = ts.do(t, http.MethodGet, "/api/v1/cart/summary", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimalField(t, resp, "subtotal").Equal(decimal.NewFromInt(100)))
	assert.True(t, decimalField(t, resp, "total").Equal(decimal.NewFromInt(216)))

	w, resp = ts.do(t, http.MethodPost, "/api/v1/offers/validate", buyer, map[string]string{"code": "SAVE10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, resp["valid"])

	// checkout
	w, resp = ts.do(t, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"shipping": map[string]string{
			"name":    "Test Buyer",
			"email":   "buyer@example.com",
			"address": "1 Market St",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := resp["order"].(map[string]interface{})
	orderID := uint(order["id"].(float64))
	assert.Equal(t, "pending", order["status"])
	assert.True(t, decimalField(t, order, "total").Equal(decimal.NewFromInt(216)))

	w, resp = ts.do(t, http.MethodGet, "/api/v1/cart", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp["count"])

	// discount
	w, resp = ts.do(t, http.MethodPost, "/api/v1/discounts/apply", buyer, map[string]interface{}{
		"order_id": orderID,
		"code":     "SAVE10",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decimalField(t, resp, "discount_amount").Equal(decimal.NewFromInt(10)))
	assert.True(t, decimalField(t, resp, "new_total").Equal(decimal.NewFromInt(206)))

	// completion decrements stock
	var product model.Product
	require.NoError(t, ts.DB.First(&product, productID).Error)
	assert.Equal(t, 10, product.Stock)

	w, resp = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/status", orderID), admin, map[string]string{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", resp["order"].(map[string]interface{})["status"])

	require.NoError(t, ts.DB.First(&product, productID).Error)
	assert.Equal(t, 8, product.Stock)

	w, _ = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/status", orderID), admin, map[string]string{
		"status": "cancelled",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = ts.do(t, http.MethodGet, "/api/v1/orders", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["orders"], 1)
}

func TestCheckoutWithRejectedCode(t *testing.T) {
	ts := setupIntegrationTest(t)
	buyer := ts.register(t, "buyer@example.com")

	product := &model.Product{Name: "Mug", Slug: "mug", SKU: "MG-1", Price: decimal.NewFromInt(20), Stock: 5, IsActive: true}
	require.NoError(t, ts.DB.Create(product).Error)

	w, _ := ts.do(t, http.MethodPost, "/api/v1/cart/items", buyer, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := ts.do(t, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"shipping":   map[string]string{"name": "B", "email": "buyer@example.com", "address": "2 Elm"},
		"offer_code": "NOPE",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	discount := resp["discount"].(map[string]interface{})
	require.NotNil(t, discount["code_rejection"])
	assert.Equal(t, false, discount["code_rejection"].(map[string]interface{})["valid"])
}

func TestEmptyCartCheckout(t *testing.T) {
	ts := setupIntegrationTest(t)
	buyer := ts.register(t, "buyer@example.com")

	w, _ := ts.do(t, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"shipping": map[string]string{"name": "B", "email": "buyer@example.com", "address": "2 Elm"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnauthorizedAccess(t *testing.T) {
	ts := setupIntegrationTest(t)
	buyer := ts.register(t, "buyer@example.com")

	protectedRoutes := []string{
		"/api/v1/auth/me",
		"/api/v1/cart",
		"/api/v1/orders",
		"/api/v1/admin/offers",
	}
	for _, route := range protectedRoutes {
		t.Run(route, func(t *testing.T) {
			w, _ := ts.do(t, http.MethodGet, route, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	w, _ := ts.do(t, http.MethodGet, "/api/v1/admin/offers", buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealth(t *testing.T) {
	ts := setupIntegrationTest(t)
	w, resp := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp["status"])
}
