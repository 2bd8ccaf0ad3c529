package repository

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartTest(t *testing.T) (*gorm.DB, CartRepository, *model.User, *model.Product) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	repo := NewCartRepository(testDB)

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleCustomer,
	}
	require.NoError(t, testDB.Create(user).Error)

	product := newTestProduct("Test Product", "TP-1", 100, 10)
	require.NoError(t, testDB.Create(product).Error)

	return testDB, repo, user, product
}

func TestCartRepository_GetOrCreate(t *testing.T) {
	_, repo, user, _ := setupCartTest(t)

	_, err := repo.FindByUserID(user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	first, err := repo.GetOrCreate(user.ID)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := repo.GetOrCreate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one cart per user")
}

func TestCartRepository_AddOrIncrement(t *testing.T) {
	_, repo, user, product := setupCartTest(t)

	cart, err := repo.GetOrCreate(user.ID)
	require.NoError(t, err)

	require.NoError(t, repo.AddOrIncrement(&model.CartItem{
		CartID: cart.ID, ProductID: product.ID, Quantity: 2, Price: decimal.NewFromInt(100),
	}))
	require.NoError(t, repo.AddOrIncrement(&model.CartItem{
		CartID: cart.ID, ProductID: product.ID, Quantity: 3, Price: decimal.NewFromInt(90),
	}))

	items, err := repo.GetItems(cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1, "same product must not duplicate the line")
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(100)), "original price snapshot is kept")
	require.NotNil(t, items[0].Product)
	assert.Equal(t, product.Name, items[0].Product.Name)
}

func TestCartRepository_ItemLifecycle(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)

	cart, err := repo.GetOrCreate(user.ID)
	require.NoError(t, err)

	other := newTestProduct("Other", "OT-1", 5, 10)
	require.NoError(t, testDB.Create(other).Error)

	require.NoError(t, repo.AddOrIncrement(&model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 1, Price: product.Price}))
	require.NoError(t, repo.AddOrIncrement(&model.CartItem{CartID: cart.ID, ProductID: other.ID, Quantity: 1, Price: other.Price}))

	items, err := repo.GetItems(cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, repo.UpdateItemQuantity(items[0].ID, 4))
	found, err := repo.FindItem(cart.ID, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4, found.Quantity)

	_, err = repo.FindItem(cart.ID+1, items[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "items are scoped to their cart")

	require.NoError(t, repo.DeleteItem(items[1].ID))
	items, err = repo.GetItems(cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, repo.ClearCart(cart.ID))
	items, err = repo.GetItems(cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
