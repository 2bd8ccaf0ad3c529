package catalog

import (
	"bytes"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadRows(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"Name", "SKU", "Category", "Price", "Sale_Price", "Stock", "Featured"},
		[]interface{}{"Linen Shirt", "LS-1", "Clothing", "49.90", "39.90", "12", "yes"},
		[]interface{}{"", "", "", "", "", "", ""},
		[]interface{}{"Broken", "BR-1", "", "abc", "", "", ""},
		[]interface{}{"Mug", "MG-1", "", "8", "", "x", ""},
		[]interface{}{"Cap", "CP-1", "Hats", "15", "", "", ""},
	)

	rows, skipped, err := ReadRows(buf)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Clothing", rows[0].Category)
	assert.True(t, rows[0].Input.Price.Equal(decimal.RequireFromString("49.90")))
	assert.True(t, rows[0].Input.SalePrice.Valid)
	assert.Equal(t, 12, rows[0].Input.Stock)
	assert.True(t, rows[0].Input.IsFeatured)
	assert.True(t, *rows[0].Input.IsActive)
	assert.Equal(t, "CP-1", rows[1].Input.SKU)

	require.Len(t, skipped, 2)
	assert.Equal(t, 4, skipped[0].Line)
	assert.Equal(t, 5, skipped[1].Line)
}

func TestReadRows_MissingColumn(t *testing.T) {
	buf := workbook(t, []interface{}{"Name", "Price"})
	_, _, err := ReadRows(buf)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestImport(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	categoryRepo := repository.NewCategoryRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	categories := service.NewCategoryService(categoryRepo)
	products := service.NewProductService(productRepo, categoryRepo)

	existing, err := categories.CreateCategory(service.CategoryInput{Name: "Clothing"})
	require.NoError(t, err)

	rows := []Row{
		{Line: 2, Category: "clothing", Input: service.ProductInput{Name: "Shirt", SKU: "S-1", Price: decimal.NewFromInt(20), Stock: 1}},
		{Line: 3, Category: "Home", Input: service.ProductInput{Name: "Mug", SKU: "M-1", Price: decimal.NewFromInt(8), Stock: 4}},
		{Line: 4, Category: "Home", Input: service.ProductInput{Name: "Bowl", SKU: "M-1", Price: decimal.NewFromInt(9)}},
		{Line: 5, Input: service.ProductInput{Name: "Free", SKU: "F-1", Price: decimal.Zero}},
	}

	result, err := Import(rows, products, categories)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.CategoriesCreated)
	require.Len(t, result.Skipped, 2)
	assert.ErrorIs(t, result.Skipped[0].Err, service.ErrSKUAlreadyExists)
	assert.ErrorIs(t, result.Skipped[1].Err, service.ErrInvalidProduct)

	shirt, err := products.GetProductBySlug("shirt")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, *shirt.CategoryID)
}
