package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CategoryController struct {
	categoryService service.CategoryService
}

func NewCategoryController(categoryService service.CategoryService) *CategoryController {
	return &CategoryController{
		categoryService: categoryService,
	}
}

// GetCategories returns the category tree. Admins may pass ?all=true to include inactive ones.
// GET /api/v1/categories
func (ctrl *CategoryController) GetCategories(c *gin.Context) {
	activeOnly := !(middleware.IsAdmin(c) && c.Query("all") == "true")

	tree, err := ctrl.categoryService.GetTree(activeOnly)
	if err != nil {
		respondServiceError(c, err, "List categories", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": tree,
	})
}

// GET /api/v1/categories/:id
func (ctrl *CategoryController) GetCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	category, err := ctrl.categoryService.GetCategory(id)
	if err != nil {
		respondServiceError(c, err, "Fetch category", map[string]interface{}{"category_id": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// POST /api/v1/categories
func (ctrl *CategoryController) CreateCategory(c *gin.Context) {
	var req service.CategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := ctrl.categoryService.CreateCategory(req)
	if err != nil {
		respondServiceError(c, err, "Create category", map[string]interface{}{"name": req.Name})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Category created successfully",
		"category": category,
	})
}

// PUT /api/v1/categories/:id
func (ctrl *CategoryController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.CategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := ctrl.categoryService.UpdateCategory(id, req)
	if err != nil {
		respondServiceError(c, err, "Update category", map[string]interface{}{
			"category_id": id,
			"parent_id":   req.ParentID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Category updated successfully",
		"category": category,
	})
}

// DELETE /api/v1/categories/:id
func (ctrl *CategoryController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.categoryService.DeleteCategory(id); err != nil {
		respondServiceError(c, err, "Delete category", map[string]interface{}{"category_id": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
