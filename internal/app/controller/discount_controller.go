package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type DiscountController struct {
	discountService service.DiscountService
	orderService    service.OrderService
}

func NewDiscountController(discountService service.DiscountService, orderService service.OrderService) *DiscountController {
	return &DiscountController{
		discountService: discountService,
		orderService:    orderService,
	}
}

const (
	msgApplyNotPending  = "Discounts can only be applied to pending orders."
	msgRemoveNotPending = "Discounts can only be removed from pending orders."
)

type ValidateOfferRequest struct {
	Code    string `json:"code" binding:"required"`
	OrderID *uint  `json:"order_id"`
}

type ApplyDiscountRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Code    string `json:"code"`
}

// GetActiveOffers lists offers currently in their window
// GET /api/v1/offers
func (ctrl *DiscountController) GetActiveOffers(c *gin.Context) {
	offers, err := ctrl.discountService.ListActiveOffers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "List active offers", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"offers": offers,
		"count":  len(offers),
	})
}

// ValidateOffer checks a code for the current user, optionally against one of their orders.
// A rejected code answers 422 with the reason.
// POST /api/v1/offers/validate
func (ctrl *DiscountController) ValidateOffer(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req ValidateOfferRequest
	if !bindJSON(c, &req) {
		return
	}

	var order *model.Order
	if req.OrderID != nil {
		o, err := ctrl.orderService.GetOrderByID(userID, *req.OrderID, false)
		if err != nil {
			respondServiceError(c, err, "Validate offer", map[string]interface{}{
				"user_id":  userID,
				"order_id": *req.OrderID,
			})
			return
		}
		order = o
	}

	result, err := ctrl.discountService.ValidateOfferCode(c.Request.Context(), req.Code, userID, order)
	if err != nil {
		respondServiceError(c, err, "Validate offer", map[string]interface{}{"user_id": userID})
		return
	}

	if !result.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   apperrors.OfferCodeRejected,
			"message": result.Message,
			"reason":  result.Reason,
			"valid":   false,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApplyDiscount recomputes the best discount for a pending order
// POST /api/v1/discounts/apply
func (ctrl *DiscountController) ApplyDiscount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req ApplyDiscountRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.discountService.ApplyBestDiscount(c.Request.Context(), userID, req.OrderID, req.Code)
	if errors.Is(err, service.ErrOrderNotPending) {
		apperrors.RespondWithError(c, http.StatusUnprocessableEntity, apperrors.OrderNotPending, msgApplyNotPending)
		return
	}
	if err != nil {
		respondServiceError(c, err, "Apply discount", map[string]interface{}{
			"user_id":  userID,
			"order_id": req.OrderID,
		})
		return
	}

	log.Info("Discount applied", map[string]interface{}{
		"user_id":         userID,
		"order_id":        req.OrderID,
		"discount_amount": result.DiscountAmount.String(),
		"code_rejected":   result.CodeRejection != nil,
	})
	c.JSON(http.StatusOK, result)
}

// RemoveDiscount clears the discount of a pending order
// DELETE /api/v1/discounts/:order_id
func (ctrl *DiscountController) RemoveDiscount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	result, err := ctrl.discountService.RemoveDiscount(c.Request.Context(), userID, orderID)
	if errors.Is(err, service.ErrOrderNotPending) {
		apperrors.RespondWithError(c, http.StatusUnprocessableEntity, apperrors.OrderNotPending, msgRemoveNotPending)
		return
	}
	if err != nil {
		respondServiceError(c, err, "Remove discount", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrderDiscount shows the offers currently applied to an order
// GET /api/v1/discounts/:order_id
func (ctrl *DiscountController) GetOrderDiscount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	result, err := ctrl.discountService.GetOrderDiscount(c.Request.Context(), userID, orderID)
	if err != nil {
		respondServiceError(c, err, "Fetch order discount", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/v1/admin/offers
func (ctrl *DiscountController) ListOffers(c *gin.Context) {
	page := queryInt(c, "page", 1)
	offers, total, err := ctrl.discountService.ListOffers(c.Request.Context(), page, queryInt(c, "per_page", 15))
	if err != nil {
		respondServiceError(c, err, "List offers", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"offers": offers,
		"total":  total,
		"page":   page,
	})
}

// GET /api/v1/admin/offers/:id
func (ctrl *DiscountController) GetOffer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	offer, err := ctrl.discountService.GetOffer(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Fetch offer", map[string]interface{}{"offer_id": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"offer": offer})
}

// POST /api/v1/admin/offers
func (ctrl *DiscountController) CreateOffer(c *gin.Context) {
	var req service.OfferInput
	if !bindJSON(c, &req) {
		return
	}
	offer, err := ctrl.discountService.CreateOffer(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Create offer", map[string]interface{}{"name": req.Name})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Offer created successfully",
		"offer":   offer,
	})
}

// PUT /api/v1/admin/offers/:id
func (ctrl *DiscountController) UpdateOffer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.OfferInput
	if !bindJSON(c, &req) {
		return
	}
	offer, err := ctrl.discountService.UpdateOffer(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "Update offer", map[string]interface{}{"offer_id": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Offer updated successfully",
		"offer":   offer,
	})
}

// DeactivateOffer switches an offer off. Usage history is kept.
// DELETE /api/v1/admin/offers/:id
func (ctrl *DiscountController) DeactivateOffer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.discountService.DeactivateOffer(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "Deactivate offer", map[string]interface{}{"offer_id": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Offer deactivated"})
}
