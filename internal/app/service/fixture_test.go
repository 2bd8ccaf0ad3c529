package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/pkg/lock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testCharges = pricing.Charges{
	TaxRate:     decimal.RequireFromString("0.16"),
	ShippingFee: decimal.NewFromInt(100),
}

type fixture struct {
	db         *gorm.DB
	locker     lock.Locker
	users      repository.UserRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	carts      repository.CartRepository
	offers     repository.OfferRepository
	orders     repository.OrderRepository

	discountSvc DiscountService
	cartSvc     CartService
	orderSvc    OrderService

	seq int64
}

func newFixture(t *testing.T, opts ...OrderServiceOption) *fixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	f := &fixture{
		db:         testDB,
		locker:     lock.NewLocalLocker(),
		users:      repository.NewUserRepository(testDB),
		products:   repository.NewProductRepository(testDB),
		categories: repository.NewCategoryRepository(testDB),
		carts:      repository.NewCartRepository(testDB),
		offers:     repository.NewOfferRepository(testDB),
		orders:     repository.NewOrderRepository(testDB),
	}
	f.discountSvc = NewDiscountService(f.offers, f.orders, f.products, testDB, f.locker)
	f.cartSvc = NewCartService(f.carts, f.products, f.locker, testCharges)
	f.orderSvc = NewOrderService(testDB, f.orders, f.carts, f.discountSvc, f.locker, testCharges, "ORD", opts...)
	return f
}

func (f *fixture) next() int64 {
	return atomic.AddInt64(&f.seq, 1)
}

func (f *fixture) user(t *testing.T) *model.User {
	t.Helper()
	n := f.next()
	u := &model.User{
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "x",
		Name:         fmt.Sprintf("User %d", n),
		Role:         model.RoleCustomer,
	}
	require.NoError(t, f.users.Create(u))
	return u
}

func (f *fixture) product(t *testing.T, price string, stock int, categoryID *uint) *model.Product {
	t.Helper()
	n := f.next()
	p := &model.Product{
		Name:       fmt.Sprintf("Product %d", n),
		Slug:       fmt.Sprintf("product-%d", n),
		SKU:        fmt.Sprintf("SKU-%d", n),
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: categoryID,
		IsActive:   true,
	}
	require.NoError(t, f.products.Create(p))
	return p
}

func (f *fixture) category(t *testing.T) *model.Category {
	t.Helper()
	n := f.next()
	c := &model.Category{Name: fmt.Sprintf("Category %d", n), Slug: fmt.Sprintf("category-%d", n), IsActive: true}
	require.NoError(t, f.categories.Create(c))
	return c
}

// offer creates an active percentage offer and lets the caller adjust it first.
func (f *fixture) offer(t *testing.T, mutate func(o *model.Offer)) *model.Offer {
	t.Helper()
	o := &model.Offer{
		Name:          fmt.Sprintf("Offer %d", f.next()),
		Type:          model.OfferTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		IsActive:      true,
		ApplyTo:       model.OfferScopeAll,
	}
	if mutate != nil {
		mutate(o)
	}
	require.NoError(t, f.offers.Create(o))
	return o
}

type line struct {
	product  *model.Product
	quantity int
}

// pendingOrder writes a priced pending order directly, bypassing the cart.
func (f *fixture) pendingOrder(t *testing.T, userID uint, lines ...line) *model.Order {
	t.Helper()
	o := &model.Order{
		OrderNumber: fmt.Sprintf("TEST%06d", f.next()),
		UserID:      userID,
		Status:      model.OrderStatusPending,
		Subtotal:    decimal.Zero,
		Discount:    decimal.Zero,
	}
	for _, l := range lines {
		item := model.OrderItem{
			ProductID:   l.product.ID,
			ProductName: l.product.Name,
			Quantity:    l.quantity,
			Price:       l.product.FinalPrice(),
		}
		o.OrderItems = append(o.OrderItems, item)
		o.Subtotal = o.Subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	o.Tax = testCharges.Tax(o.Subtotal)
	o.Shipping = testCharges.Shipping(o.Subtotal)
	o.RecalculateTotal()
	require.NoError(t, f.orders.Create(o))
	return o
}

func (f *fixture) setDiscountClock(now time.Time) {
	f.discountSvc.(*discountService).now = func() time.Time { return now }
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// assertTotalInvariant checks total = subtotal + tax + shipping - discount on the stored row.
func assertTotalInvariant(t *testing.T, f *fixture, orderID uint) *model.Order {
	t.Helper()
	o, err := f.orders.FindByID(orderID)
	require.NoError(t, err)
	expected := o.Subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount)
	require.True(t, expected.Equal(o.Total), "total %s != %s", o.Total, expected)
	return o
}
