package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// UpdateCartRequest allows zero, which removes the line.
type UpdateCartRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

type MergeCartRequest struct {
	Items []service.GuestCartItem `json:"items" binding:"required,dive"`
}

// GetCart returns user's cart lines
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	items, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		respondServiceError(c, err, "Fetch cart", map[string]interface{}{"user_id": userID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// GetCartSummary returns the priced cart
// GET /api/v1/cart/summary
func (ctrl *CartController) GetCartSummary(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	summary, err := ctrl.cartService.GetCartSummary(userID)
	if err != nil {
		respondServiceError(c, err, "Fetch cart summary", map[string]interface{}{"user_id": userID})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// AddToCart adds a product or increases an existing line
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	fields := map[string]interface{}{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	}
	if err := ctrl.cartService.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity); err != nil {
		respondServiceError(c, err, "Add to cart", fields)
		return
	}

	log.Info("Item added to cart successfully", fields)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to cart successfully",
	})
}

// UpdateCartItem sets a line quantity; zero removes the line
// PUT /api/v1/cart/items/:id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCartRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.cartService.UpdateItem(c.Request.Context(), userID, itemID, *req.Quantity); err != nil {
		respondServiceError(c, err, "Update cart item", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
			"quantity":     *req.Quantity,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
	})
}

// RemoveFromCart deletes a line
// DELETE /api/v1/cart/items/:id
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.cartService.RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		respondServiceError(c, err, "Remove cart item", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
	})
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := ctrl.cartService.ClearCart(c.Request.Context(), userID); err != nil {
		respondServiceError(c, err, "Clear cart", map[string]interface{}{"user_id": userID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

// MergeGuestCart folds lines collected before login into the user's cart
// POST /api/v1/cart/merge
func (ctrl *CartController) MergeGuestCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req MergeCartRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.cartService.MergeGuestCart(c.Request.Context(), userID, req.Items); err != nil {
		respondServiceError(c, err, "Merge guest cart", map[string]interface{}{
			"user_id": userID,
			"lines":   len(req.Items),
		})
		return
	}

	summary, err := ctrl.cartService.GetCartSummary(userID)
	if err != nil {
		respondServiceError(c, err, "Fetch cart summary", map[string]interface{}{"user_id": userID})
		return
	}
	c.JSON(http.StatusOK, summary)
}
