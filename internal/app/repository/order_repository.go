package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderSummary is the admin dashboard rollup.
type OrderSummary struct {
	TotalOrders     int64           `json:"total_orders"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	PendingOrders   int64           `json:"pending_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	CancelledOrders int64           `json:"cancelled_orders"`
}

// MonthlySales is completed-order revenue for one calendar month.
type MonthlySales struct {
	Month  int             `json:"month"`
	Orders int64           `json:"orders"`
	Sales  decimal.Decimal `json:"sales"`
}

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByNumber(orderNumber string) (*model.Order, error)
	FindByUserID(userID uint, limit, offset int) ([]model.Order, int64, error)
	MaxSequenceForPrefix(numberPrefix string) (int, error)
	GetSummary() (*OrderSummary, error)
	Search(query string, limit int) ([]model.Order, error)
	MonthlySales(year int) ([]MonthlySales, error)
	FindCreatedBetween(from, to time.Time) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Preload("Offers")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":      order.UserID,
		"order_number": order.OrderNumber,
		"total":        order.Total.String(),
	})

	if err := r.db.Omit("User", "Offers").Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":      order.UserID,
			"order_number": order.OrderNumber,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"item_count":   len(order.OrderItems),
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByNumber(orderNumber string) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder().Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		logger.Error("Failed to find order by number in database", err, map[string]interface{}{
			"order_number": orderNumber,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(userID uint, limit, offset int) ([]model.Order, int64, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	})

	var total int64
	if err := r.db.Model(&model.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		logger.Error("Failed to count orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, 0, err
	}

	query := r.preloadOrder().Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, 0, err
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
		"total":   total,
	})
	return orders, total, nil
}

// MaxSequenceForPrefix returns the highest numeric suffix among order numbers starting with
// numberPrefix (e.g. "ORD20260301"), 0 when there are none. Soft-deleted orders still count.
func (r *orderRepository) MaxSequenceForPrefix(numberPrefix string) (int, error) {
	var numbers []string
	if err := r.db.Unscoped().Model(&model.Order{}).
		Where("order_number LIKE ?", numberPrefix+"%").
		Pluck("order_number", &numbers).Error; err != nil {
		logger.Error("Failed to read order number sequence", err, map[string]interface{}{
			"prefix": numberPrefix,
		})
		return 0, err
	}

	maxSeq := 0
	for _, n := range numbers {
		seq, err := strconv.Atoi(strings.TrimPrefix(n, numberPrefix))
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

func (r *orderRepository) GetSummary() (*OrderSummary, error) {
	summary := &OrderSummary{TotalSales: decimal.Zero}

	statusCounts := []struct {
		Status model.OrderStatus
		Count  int64
	}{}
	if err := r.db.Model(&model.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		logger.Error("Failed to count orders by status", err, nil)
		return nil, err
	}

	for _, sc := range statusCounts {
		summary.TotalOrders += sc.Count
		switch sc.Status {
		case model.OrderStatusPending:
			summary.PendingOrders = sc.Count
		case model.OrderStatusCompleted:
			summary.CompletedOrders = sc.Count
		case model.OrderStatusCancelled:
			summary.CancelledOrders = sc.Count
		}
	}

	// Sales are completed orders only.
	var totals []decimal.Decimal
	if err := r.db.Model(&model.Order{}).
		Where("status = ?", model.OrderStatusCompleted).
		Pluck("total", &totals).Error; err != nil {
		logger.Error("Failed to sum completed order totals", err, nil)
		return nil, err
	}
	for _, t := range totals {
		summary.TotalSales = summary.TotalSales.Add(t)
	}

	logger.Debug("Order summary computed", map[string]interface{}{
		"total_orders": summary.TotalOrders,
		"total_sales":  summary.TotalSales.String(),
	})
	return summary, nil
}

// Search matches the order number or the shipping name/email.
func (r *orderRepository) Search(query string, limit int) ([]model.Order, error) {
	like := fmt.Sprintf("%%%s%%", query)
	q := r.db.Where("order_number LIKE ? OR shipping_name LIKE ? OR shipping_email LIKE ?", like, like, like).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var orders []model.Order
	if err := q.Find(&orders).Error; err != nil {
		logger.Error("Failed to search orders in database", err, map[string]interface{}{
			"query": query,
		})
		return nil, err
	}
	return orders, nil
}

// MonthlySales buckets completed orders of the year by creation month. All twelve months are
// returned, empty ones with zero sales.
func (r *orderRepository) MonthlySales(year int) ([]MonthlySales, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	var rows []struct {
		Total     decimal.Decimal
		CreatedAt time.Time
	}
	if err := r.db.Model(&model.Order{}).
		Select("total, created_at").
		Where("status = ? AND created_at >= ? AND created_at < ?", model.OrderStatusCompleted, from, to).
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to load monthly sales", err, map[string]interface{}{
			"year": year,
		})
		return nil, err
	}

	months := make([]MonthlySales, 12)
	for i := range months {
		months[i] = MonthlySales{Month: i + 1, Sales: decimal.Zero}
	}
	for _, row := range rows {
		m := &months[int(row.CreatedAt.UTC().Month())-1]
		m.Orders++
		m.Sales = m.Sales.Add(row.Total)
	}
	return months, nil
}

func (r *orderRepository) FindCreatedBetween(from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	if err := r.preloadOrder().
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to load orders in range", err, map[string]interface{}{
			"from": from,
			"to":   to,
		})
		return nil, err
	}
	return orders, nil
}
