// Package catalog loads products from an xlsx sheet into the store.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var ErrMissingColumn = errors.New("required column missing")

// header names, matched case-insensitively. name, sku and price are required.
const (
	colName        = "name"
	colSKU         = "sku"
	colCategory    = "category"
	colPrice       = "price"
	colSalePrice   = "sale_price"
	colStock       = "stock"
	colDescription = "description"
	colFeatured    = "featured"
	colActive      = "active"
)

var requiredColumns = []string{colName, colSKU, colPrice}

// Row is one parsed product line. Line is the 1-based sheet row.
type Row struct {
	Line     int
	Category string
	Input    service.ProductInput
}

type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

type Result struct {
	Created           int
	CategoriesCreated int
	Skipped           []RowError
}

// ReadRows parses the first sheet. Malformed lines are returned as RowErrors, not failures.
func ReadRows(r io.Reader) ([]Row, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("no sheets found in XLSX file")
	}
	lines, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("no data found in XLSX file")
	}

	index := make(map[string]int)
	for i, h := range lines[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	var (
		rows    []Row
		skipped []RowError
	)
	for i, line := range lines[1:] {
		lineNo := i + 2
		cell := func(col string) string {
			j, ok := index[col]
			if !ok || j >= len(line) {
				return ""
			}
			return strings.TrimSpace(line[j])
		}

		if cell(colName) == "" && cell(colSKU) == "" {
			continue // blank line
		}
		row, err := parseRow(cell)
		if err != nil {
			skipped = append(skipped, RowError{Line: lineNo, Err: err})
			continue
		}
		row.Line = lineNo
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func parseRow(cell func(string) string) (Row, error) {
	price, err := decimal.NewFromString(cell(colPrice))
	if err != nil {
		return Row{}, fmt.Errorf("invalid price %q", cell(colPrice))
	}

	input := service.ProductInput{
		Name:        cell(colName),
		SKU:         cell(colSKU),
		Description: cell(colDescription),
		Price:       price,
		IsFeatured:  parseBool(cell(colFeatured), false),
	}
	if input.Name == "" || input.SKU == "" {
		return Row{}, errors.New("name and sku are required")
	}
	if raw := cell(colSalePrice); raw != "" {
		sale, err := decimal.NewFromString(raw)
		if err != nil {
			return Row{}, fmt.Errorf("invalid sale_price %q", raw)
		}
		input.SalePrice = decimal.NewNullDecimal(sale)
	}
	if raw := cell(colStock); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return Row{}, fmt.Errorf("invalid stock %q", raw)
		}
		input.Stock = stock
	}
	active := parseBool(cell(colActive), true)
	input.IsActive = &active

	return Row{Category: cell(colCategory), Input: input}, nil
}

func parseBool(raw string, fallback bool) bool {
	switch strings.ToLower(raw) {
	case "1", "y", "yes", "true":
		return true
	case "0", "n", "no", "false":
		return false
	}
	return fallback
}

// Import creates the rows through the catalog services so slugs and validation match the API.
// Unknown categories are created as top-level categories. Rows the services reject are skipped.
func Import(rows []Row, products service.ProductService, categories service.CategoryService) (*Result, error) {
	tree, err := categories.GetTree(false)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint)
	var walk func(nodes []model.Category)
	walk = func(nodes []model.Category) {
		for _, c := range nodes {
			byName[strings.ToLower(c.Name)] = c.ID
			walk(c.Children)
		}
	}
	walk(tree)

	result := &Result{}
	for _, row := range rows {
		input := row.Input
		if row.Category != "" {
			id, ok := byName[strings.ToLower(row.Category)]
			if !ok {
				created, err := categories.CreateCategory(service.CategoryInput{Name: row.Category})
				if err != nil {
					return result, fmt.Errorf("row %d: create category %q: %w", row.Line, row.Category, err)
				}
				id = created.ID
				byName[strings.ToLower(row.Category)] = id
				result.CategoriesCreated++
			}
			input.CategoryID = &id
		}

		if _, err := products.CreateProduct(input); err != nil {
			if errors.Is(err, service.ErrSKUAlreadyExists) || errors.Is(err, service.ErrInvalidProduct) {
				result.Skipped = append(result.Skipped, RowError{Line: row.Line, Err: err})
				continue
			}
			return result, fmt.Errorf("row %d: %w", row.Line, err)
		}
		result.Created++
	}

	logger.Info("Catalog import finished", map[string]interface{}{
		"created":            result.Created,
		"categories_created": result.CategoriesCreated,
		"skipped":            len(result.Skipped),
	})
	return result, nil
}
