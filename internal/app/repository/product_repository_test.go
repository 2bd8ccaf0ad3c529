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

func setupProductTest(t *testing.T) (*gorm.DB, ProductRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return testDB, NewProductRepository(testDB)
}

func newTestProduct(name, sku string, price int64, stock int) *model.Product {
	return &model.Product{
		Name:     name,
		Slug:     sku,
		SKU:      sku,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		IsActive: true,
	}
}

func TestProductRepository_Create(t *testing.T) {
	_, repo := setupProductTest(t)

	product := newTestProduct("Gold Chain", "GC-1", 450, 3)
	err := repo.Create(product)
	assert.NoError(t, err)
	assert.NotZero(t, product.ID)

	dup := newTestProduct("Gold Chain", "GC-1", 450, 3)
	assert.Error(t, repo.Create(dup), "sku and slug are unique")
}

func TestProductRepository_FindWithFilter(t *testing.T) {
	testDB, repo := setupProductTest(t)

	category := &model.Category{Name: "Rings", Slug: "rings", IsActive: true}
	require.NoError(t, testDB.Create(category).Error)

	ring := newTestProduct("Silver Ring", "SR-1", 80, 5)
	ring.CategoryID = &category.ID
	chain := newTestProduct("Gold Chain", "GC-1", 450, 0)
	hidden := newTestProduct("Hidden", "HD-1", 10, 1)
	hidden.IsActive = false
	for _, p := range []*model.Product{ring, chain, hidden} {
		require.NoError(t, repo.Create(p))
	}

	tests := []struct {
		name      string
		filter    ProductFilter
		wantNames []string
		wantTotal int64
	}{
		{
			name:      "Active only sorted by price",
			filter:    ProductFilter{ActiveOnly: true, SortBy: ProductSortPrice, SortAscending: true},
			wantNames: []string{"Silver Ring", "Gold Chain"},
			wantTotal: 2,
		},
		{
			name:      "By category",
			filter:    ProductFilter{CategoryID: &category.ID},
			wantNames: []string{"Silver Ring"},
			wantTotal: 1,
		},
		{
			name:      "In stock only",
			filter:    ProductFilter{ActiveOnly: true, InStockOnly: true},
			wantNames: []string{"Silver Ring"},
			wantTotal: 1,
		},
		{
			name:      "Search with paging keeps total",
			filter:    ProductFilter{Search: "G", SortBy: ProductSortName, SortAscending: true, Limit: 1},
			wantNames: []string{"Gold Chain"},
			wantTotal: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := repo.FindWithFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			var names []string
			for _, p := range products {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestProductRepository_FindByIDsIncludesDeleted(t *testing.T) {
	_, repo := setupProductTest(t)

	a := newTestProduct("A", "A-1", 10, 1)
	b := newTestProduct("B", "B-1", 20, 1)
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(b))
	require.NoError(t, repo.Delete(b.ID))

	_, err := repo.FindByID(b.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.FindByIDs([]uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	exists, err := repo.SlugExists("B-1", 0)
	require.NoError(t, err)
	assert.True(t, exists, "soft-deleted slugs stay reserved")

	exists, err = repo.SlugExists("A-1", a.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProductRepository_DecrementStock(t *testing.T) {
	_, repo := setupProductTest(t)

	product := newTestProduct("Bracelet", "BR-1", 120, 3)
	require.NoError(t, repo.Create(product))

	ok, err := repo.DecrementStock(product.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(product.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "only one unit left")

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.Stock)
}

func TestProductRepository_DeleteMissing(t *testing.T) {
	_, repo := setupProductTest(t)

	err := repo.Delete(999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
