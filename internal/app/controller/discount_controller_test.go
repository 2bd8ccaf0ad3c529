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
	"gorm.io/gorm"
)

type discountTestEnv struct {
	customer  *gin.Engine
	admin     *gin.Engine
	discounts service.DiscountService
	order     *model.Order
	db        *gorm.DB
}

func setupDiscountControllerTest(t *testing.T) *discountTestEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	locker := lock.NewLocalLocker()
	charges := pricing.Charges{TaxRate: decimal.Zero, ShippingFee: decimal.NewFromInt(10)}
	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)

	discounts := service.NewDiscountService(repository.NewOfferRepository(testDB), orderRepo, productRepo, testDB, locker)
	orders := service.NewOrderService(testDB, orderRepo, cartRepo, discounts, locker, charges, "ORD")
	carts := service.NewCartService(cartRepo, productRepo, locker, charges)
	ctrl := NewDiscountController(discounts, orders)

	customer := createTestUser(t, testDB, "customer@example.com", model.RoleCustomer)
	product := createTestProduct(t, testDB, "DSC-1", 50, 10)

	require.NoError(t, carts.AddItem(context.Background(), customer.ID, product.ID, 2))
	order, _, err := orders.CreateOrderFromCart(context.Background(), customer.ID, service.CreateOrderInput{
		Shipping: model.ContactInfo{Name: "Customer", Email: "customer@example.com", Address: "1 Main St"},
	})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)

	customerRouter := gin.New()
	customerRouter.Use(func(c *gin.Context) { setUserIDInContext(c, customer.ID) })
	customerRouter.GET("/offers", ctrl.GetActiveOffers)
	customerRouter.POST("/offers/validate", ctrl.ValidateOffer)
	customerRouter.POST("/discounts/apply", ctrl.ApplyDiscount)
	customerRouter.GET("/discounts/:order_id", ctrl.GetOrderDiscount)
	customerRouter.DELETE("/discounts/:order_id", ctrl.RemoveDiscount)

	adminRouter := gin.New()
	adminRouter.Use(func(c *gin.Context) { setAdminInContext(c, 999) })
	adminRouter.GET("/admin/offers", ctrl.ListOffers)
	adminRouter.GET("/admin/offers/:id", ctrl.GetOffer)
	adminRouter.POST("/admin/offers", ctrl.CreateOffer)
	adminRouter.PUT("/admin/offers/:id", ctrl.UpdateOffer)
	adminRouter.DELETE("/admin/offers/:id", ctrl.DeactivateOffer)

	return &discountTestEnv{customer: customerRouter, admin: adminRouter, discounts: discounts, order: order, db: testDB}
}

func (env *discountTestEnv) createOffer(t *testing.T, body map[string]interface{}) uint {
	t.Helper()
	w := performJSON(env.admin, http.MethodPost, "/admin/offers", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decodeBody(t, w)["offer"].(map[string]interface{})["id"].(float64))
}

func TestDiscountController_ValidateOffer(t *testing.T) {
	env := setupDiscountControllerTest(t)
	env.createOffer(t, map[string]interface{}{
		"name": "Big spender", "code": "BIG", "type": "fixed_amount",
		"discount_value": "20", "min_order_amount": "500",
	})

	w := performJSON(env.customer, http.MethodPost, "/offers/validate", map[string]interface{}{"code": "BIG"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["valid"])

	w = performJSON(env.customer, http.MethodPost, "/offers/validate", map[string]interface{}{"code": "BIG", "order_id": env.order.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, apperrors.OfferCodeRejected, body["error"])
	assert.Equal(t, string(service.ReasonNotApplicable), body["reason"])

	w = performJSON(env.customer, http.MethodPost, "/offers/validate", map[string]interface{}{"code": "MISSING"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(service.ReasonNotFound), decodeBody(t, w)["reason"])

	w = performJSON(env.customer, http.MethodPost, "/offers/validate", map[string]interface{}{"code": "BIG", "order_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDiscountController_ApplyAndRemove(t *testing.T) {
	env := setupDiscountControllerTest(t)
	env.createOffer(t, map[string]interface{}{
		"name": "Quarter off", "code": "Q25", "type": "percentage", "discount_value": "25",
	})

	w := performJSON(env.customer, http.MethodPost, "/discounts/apply", ApplyDiscountRequest{OrderID: env.order.ID, Code: "Q25"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "25", body["discount_amount"])
	assert.Equal(t, "85", body["new_total"])

	w = performJSON(env.customer, http.MethodGet, fmt.Sprintf("/discounts/%d", env.order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, "25", body["discount_amount"])
	applied := body["applied_offers"].([]interface{})
	require.Len(t, applied, 1)
	assert.Equal(t, "Q25", applied[0].(map[string]interface{})["offer_code"])

	w = performJSON(env.customer, http.MethodDelete, fmt.Sprintf("/discounts/%d", env.order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "110", decodeBody(t, w)["new_total"])

	w = performJSON(env.customer, http.MethodGet, fmt.Sprintf("/discounts/%d", 9999), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performJSON(env.customer, http.MethodPost, "/discounts/apply", ApplyDiscountRequest{OrderID: 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDiscountController_NonPendingOrder(t *testing.T) {
	env := setupDiscountControllerTest(t)
	require.NoError(t, env.db.Model(&model.Order{}).Where("id = ?", env.order.ID).
		Update("status", model.OrderStatusCancelled).Error)

	w := performJSON(env.customer, http.MethodPost, "/discounts/apply", ApplyDiscountRequest{OrderID: env.order.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, apperrors.OrderNotPending, body["error"])
	assert.Equal(t, "Discounts can only be applied to pending orders.", body["message"])

	w = performJSON(env.customer, http.MethodDelete, fmt.Sprintf("/discounts/%d", env.order.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, apperrors.OrderNotPending, body["error"])
	assert.Equal(t, "Discounts can only be removed from pending orders.", body["message"])
}

func TestDiscountController_AdminOffers(t *testing.T) {
	env := setupDiscountControllerTest(t)
	id := env.createOffer(t, map[string]interface{}{
		"name": "Ship free", "code": "SHIP", "type": "free_shipping",
	})

	w := performJSON(env.admin, http.MethodPost, "/admin/offers", map[string]interface{}{
		"name": "Dup", "code": "SHIP", "type": "fixed_amount", "discount_value": "1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.OfferCodeExists, decodeBody(t, w)["error"])

	w = performJSON(env.admin, http.MethodPost, "/admin/offers", map[string]interface{}{
		"name": "Too much", "type": "percentage", "discount_value": "150",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.OfferInvalid, decodeBody(t, w)["error"])

	w = performJSON(env.admin, http.MethodPost, "/admin/offers", map[string]interface{}{
		"name": "Unknown", "type": "mystery",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(env.admin, http.MethodPut, fmt.Sprintf("/admin/offers/%d", id), map[string]interface{}{
		"name": "Ship free (renamed)", "code": "SHIP", "type": "free_shipping",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ship free (renamed)", decodeBody(t, w)["offer"].(map[string]interface{})["name"])

	w = performJSON(env.customer, http.MethodGet, "/offers", nil)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = performJSON(env.admin, http.MethodDelete, fmt.Sprintf("/admin/offers/%d", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(env.admin, http.MethodGet, fmt.Sprintf("/admin/offers/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["offer"].(map[string]interface{})["is_active"])

	w = performJSON(env.customer, http.MethodGet, "/offers", nil)
	assert.Equal(t, float64(0), decodeBody(t, w)["count"])

	w = performJSON(env.admin, http.MethodGet, "/admin/offers", nil)
	assert.Equal(t, float64(1), decodeBody(t, w)["total"])

	w = performJSON(env.admin, http.MethodGet, "/admin/offers/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
