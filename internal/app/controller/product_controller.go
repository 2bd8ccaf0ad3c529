package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// listOptions reads the catalog query string. include_inactive is honoured for admins only.
func listOptions(c *gin.Context) service.ProductListOptions {
	opts := service.ProductListOptions{
		Search:        strings.TrimSpace(c.Query("search")),
		InStockOnly:   c.Query("in_stock") == "true",
		Sort:          repository.ProductSort(c.DefaultQuery("sort", string(repository.ProductSortCreatedAt))),
		SortAscending: c.Query("order") == "asc",
		Page:          queryInt(c, "page", 1),
		PerPage:       queryInt(c, "per_page", 15),
	}
	if raw := c.Query("category_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			categoryID := uint(id)
			opts.CategoryID = &categoryID
		}
	}
	if raw := c.Query("featured"); raw != "" {
		featured := raw == "true"
		opts.Featured = &featured
	}
	if middleware.IsAdmin(c) {
		opts.IncludeInactive = c.Query("include_inactive") == "true"
	}
	return opts
}

// GetProducts returns a page of products
// GET /api/v1/products
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	opts := listOptions(c)
	products, total, err := ctrl.productService.ListProducts(opts)
	if err != nil {
		respondServiceError(c, err, "List products", map[string]interface{}{"search": opts.Search})
		return
	}

	log.Debug("Products fetched successfully", map[string]interface{}{
		"count": len(products),
		"total": total,
	})

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
		"total":    total,
		"page":     opts.Page,
	})
}

// GetProduct returns a product by numeric id or slug. Inactive products are visible to admins only.
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	ref := c.Param("id")

	var (
		product *model.Product
		err     error
	)
	if id, convErr := strconv.ParseUint(ref, 10, 32); convErr == nil {
		product, err = ctrl.productService.GetProductByID(uint(id))
	} else {
		product, err = ctrl.productService.GetProductBySlug(ref)
	}
	if err == nil && !product.IsActive && !middleware.IsAdmin(c) {
		err = service.ErrProductNotFound
	}
	if err != nil {
		respondServiceError(c, err, "Fetch product", map[string]interface{}{"product": ref})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct creates a new product (Admin only)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	var req service.ProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := ctrl.productService.CreateProduct(req)
	if err != nil {
		respondServiceError(c, err, "Create product", map[string]interface{}{"sku": req.SKU})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct replaces a product's editable fields (Admin only)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.ProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := ctrl.productService.UpdateProduct(id, req)
	if err != nil {
		respondServiceError(c, err, "Update product", map[string]interface{}{"product_id": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct soft-deletes a product (Admin only)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(id); err != nil {
		respondServiceError(c, err, "Delete product", map[string]interface{}{"product_id": id})
		return
	}

	middleware.GetLoggerFromContext(c).Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})
	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}
