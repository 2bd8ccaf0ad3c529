package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

const exportDateLayout = "2006-01-02"

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required,oneof=pending completed cancelled"`
}

// ExportOrdersRequest takes inclusive calendar dates.
type ExportOrdersRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// GetOrders returns the user's orders, newest first
// GET /api/v1/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	orders, total, err := ctrl.orderService.GetUserOrders(userID, page, queryInt(c, "per_page", 15))
	if err != nil {
		respondServiceError(c, err, "List orders", map[string]interface{}{"user_id": userID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
		"total":  total,
		"page":   page,
	})
}

// GetOrderByID returns one order. Customers only see their own.
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(userID, orderID, middleware.IsAdmin(c))
	if err != nil {
		respondServiceError(c, err, "Fetch order", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GET /api/v1/orders/number/:number
func (ctrl *OrderController) GetOrderByNumber(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	number := c.Param("number")

	order, err := ctrl.orderService.GetOrderByNumber(userID, number, middleware.IsAdmin(c))
	if err != nil {
		respondServiceError(c, err, "Fetch order by number", map[string]interface{}{
			"user_id":      userID,
			"order_number": number,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CreateOrder turns the user's cart into a pending order
// POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req service.CreateOrderInput
	if !bindJSON(c, &req) {
		return
	}

	order, discount, err := ctrl.orderService.CreateOrderFromCart(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "Create order", map[string]interface{}{
			"user_id":    userID,
			"offer_code": req.OfferCode,
		})
		return
	}

	log.Info("Order created successfully", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.Total.String(),
	})

	resp := gin.H{
		"message": "Order created successfully",
		"order":   order,
	}
	if discount != nil {
		resp["discount"] = discount
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateOrderStatus completes or cancels a pending order (Admin only)
// PUT /api/v1/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondServiceError(c, err, "Update order status", map[string]interface{}{
			"order_id": orderID,
			"status":   req.Status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"order":   order,
	})
}

// GET /api/v1/orders/summary
func (ctrl *OrderController) GetOrdersSummary(c *gin.Context) {
	summary, err := ctrl.orderService.GetOrdersSummary()
	if err != nil {
		respondServiceError(c, err, "Orders summary", nil)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SearchOrders matches order number, customer name or email
// GET /api/v1/orders/search?q=
func (ctrl *OrderController) SearchOrders(c *gin.Context) {
	query := c.Query("q")
	orders, err := ctrl.orderService.SearchOrders(query)
	if err != nil {
		respondServiceError(c, err, "Search orders", map[string]interface{}{"query": query})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GET /api/v1/orders/monthly-sales?year=
func (ctrl *OrderController) GetMonthlySales(c *gin.Context) {
	year := queryInt(c, "year", time.Now().Year())
	sales, err := ctrl.orderService.GetMonthlySales(year)
	if err != nil {
		respondServiceError(c, err, "Monthly sales", map[string]interface{}{"year": year})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"year":  year,
		"sales": sales,
	})
}

// ExportOrders uploads an xlsx of orders created in [from, to] and returns a download link
// POST /api/v1/orders/export
func (ctrl *OrderController) ExportOrders(c *gin.Context) {
	var req ExportOrdersRequest
	if !bindJSON(c, &req) {
		return
	}

	from, err := time.Parse(exportDateLayout, req.From)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(exportDateLayout, req.To)
	if err != nil || to.Before(from) {
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "to must be YYYY-MM-DD and not before from")
		return
	}

	export, err := ctrl.orderService.ExportOrders(c.Request.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		respondServiceError(c, err, "Export orders", map[string]interface{}{
			"from": req.From,
			"to":   req.To,
		})
		return
	}

	c.JSON(http.StatusOK, export)
}
