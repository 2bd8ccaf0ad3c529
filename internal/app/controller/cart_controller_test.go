package controller

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/pkg/lock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartTestEnv struct {
	router  *gin.Engine
	service service.CartService
	user    *model.User
	product *model.Product
}

func setupCartControllerTest(t *testing.T) *cartTestEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	charges := pricing.Charges{TaxRate: decimal.RequireFromString("0.16"), ShippingFee: decimal.NewFromInt(100)}
	cartService := service.NewCartService(
		repository.NewCartRepository(testDB),
		repository.NewProductRepository(testDB),
		lock.NewLocalLocker(),
		charges,
	)
	ctrl := NewCartController(cartService)

	user := createTestUser(t, testDB, "test@example.com", model.RoleCustomer)
	product := createTestProduct(t, testDB, "CART-1", 100, 10)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	authed := router.Group("", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
	})
	authed.GET("/cart", ctrl.GetCart)
	authed.GET("/cart/summary", ctrl.GetCartSummary)
	authed.POST("/cart/items", ctrl.AddToCart)
	authed.PUT("/cart/items/:id", ctrl.UpdateCartItem)
	authed.DELETE("/cart/items/:id", ctrl.RemoveFromCart)
	authed.DELETE("/cart", ctrl.ClearCart)
	authed.POST("/cart/merge", ctrl.MergeGuestCart)
	router.GET("/anonymous/cart", ctrl.GetCart)

	return &cartTestEnv{router: router, service: cartService, user: user, product: product}
}

func (env *cartTestEnv) firstItemID(t *testing.T) uint {
	t.Helper()
	items, err := env.service.GetCart(env.user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	return items[0].ID
}

func TestCartController_GetCart_Empty(t *testing.T) {
	env := setupCartControllerTest(t)

	w := performJSON(env.router, http.MethodGet, "/cart", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["count"])
}

func TestCartController_GetCart_Unauthorized(t *testing.T) {
	env := setupCartControllerTest(t)

	w := performJSON(env.router, http.MethodGet, "/anonymous/cart", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartController_AddToCart_Success(t *testing.T) {
	env := setupCartControllerTest(t)

	w := performJSON(env.router, http.MethodPost, "/cart/items", AddToCartRequest{ProductID: env.product.ID, Quantity: 2})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = performJSON(env.router, http.MethodGet, "/cart/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decodeBody(t, w)
	assert.Equal(t, float64(2), summary["items_count"])
	assert.Equal(t, "200", summary["subtotal"])
	assert.Equal(t, "32", summary["tax"])
	assert.Equal(t, "332", summary["total"])
}

func TestCartController_AddToCart_Rejections(t *testing.T) {
	env := setupCartControllerTest(t)

	tests := []struct {
		name     string
		body     interface{}
		status   int
		wantCode string
	}{
		{"unknown product", AddToCartRequest{ProductID: 9999, Quantity: 1}, http.StatusNotFound, apperrors.ProductNotFound},
		{"over stock", AddToCartRequest{ProductID: env.product.ID, Quantity: 11}, http.StatusBadRequest, apperrors.StockInsufficient},
		{"zero quantity", map[string]interface{}{"product_id": env.product.ID, "quantity": 0}, http.StatusBadRequest, apperrors.ValidationInvalidInput},
		{"missing product", map[string]interface{}{"quantity": 1}, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(env.router, http.MethodPost, "/cart/items", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, w)["error"])
		})
	}
}

func TestCartController_UpdateCartItem(t *testing.T) {
	env := setupCartControllerTest(t)
	require.NoError(t, env.service.AddItem(context.Background(), env.user.ID, env.product.ID, 1))
	itemID := env.firstItemID(t)

	w := performJSON(env.router, http.MethodPut, fmt.Sprintf("/cart/items/%d", itemID), map[string]int{"quantity": 5})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(env.router, http.MethodPut, fmt.Sprintf("/cart/items/%d", itemID), map[string]int{"quantity": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.StockInsufficient, decodeBody(t, w)["error"])

	w = performJSON(env.router, http.MethodPut, "/cart/items/9999", map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performJSON(env.router, http.MethodPut, "/cart/items/abc", map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// zero removes the line
	w = performJSON(env.router, http.MethodPut, fmt.Sprintf("/cart/items/%d", itemID), map[string]int{"quantity": 0})
	assert.Equal(t, http.StatusOK, w.Code)
	items, err := env.service.GetCart(env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartController_RemoveAndClear(t *testing.T) {
	env := setupCartControllerTest(t)
	require.NoError(t, env.service.AddItem(context.Background(), env.user.ID, env.product.ID, 1))
	itemID := env.firstItemID(t)

	w := performJSON(env.router, http.MethodDelete, fmt.Sprintf("/cart/items/%d", itemID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(env.router, http.MethodDelete, fmt.Sprintf("/cart/items/%d", itemID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, env.service.AddItem(context.Background(), env.user.ID, env.product.ID, 3))
	w = performJSON(env.router, http.MethodDelete, "/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(env.router, http.MethodGet, "/cart", nil)
	assert.Equal(t, float64(0), decodeBody(t, w)["count"])
}

func TestCartController_MergeGuestCart(t *testing.T) {
	env := setupCartControllerTest(t)
	require.NoError(t, env.service.AddItem(context.Background(), env.user.ID, env.product.ID, 1))

	w := performJSON(env.router, http.MethodPost, "/cart/merge", MergeCartRequest{
		Items: []service.GuestCartItem{{ProductID: env.product.ID, Quantity: 2}},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(3), decodeBody(t, w)["items_count"])
}
