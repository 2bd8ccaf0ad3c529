package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/pkg/lock"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrNoActiveCart      = errors.New("no active cart")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

const (
	orderNumberAttempts = 5
	orderSearchLimit    = 50
)

type CreateOrderInput struct {
	Shipping  model.ContactInfo  `json:"shipping" binding:"required"`
	Billing   *model.ContactInfo `json:"billing"`
	OfferCode string             `json:"offer_code"`
	Notes     string             `json:"notes"`
}

// OrderStatusNotifier is told about every committed status change.
type OrderStatusNotifier interface {
	NotifyOrderStatus(userID uint, order *model.Order)
}

type OrderService interface {
	// CreateOrderFromCart converts the user's cart into a pending order. When input.OfferCode is set the
	// discount engine runs after the order commits; its result (including a rejected code) is returned
	// alongside and never fails the order.
	CreateOrderFromCart(ctx context.Context, userID uint, input CreateOrderInput) (*model.Order, *DiscountResult, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error)
	GetOrderByID(userID, orderID uint, isAdmin bool) (*model.Order, error)
	GetOrderByNumber(userID uint, orderNumber string, isAdmin bool) (*model.Order, error)
	GetUserOrders(userID uint, page, perPage int) ([]model.Order, int64, error)
	GetOrdersSummary() (*repository.OrderSummary, error)
	SearchOrders(query string) ([]model.Order, error)
	GetMonthlySales(year int) ([]repository.MonthlySales, error)
	ExportOrders(ctx context.Context, from, to time.Time) (*OrderExport, error)
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	discountSvc DiscountService
	locker      lock.Locker
	charges     pricing.Charges
	prefix      string
	notifier    OrderStatusNotifier
	uploader    ExportUploader
	now         func() time.Time
}

type OrderServiceOption func(*orderService)

func WithStatusNotifier(n OrderStatusNotifier) OrderServiceOption {
	return func(s *orderService) { s.notifier = n }
}

func WithExportUploader(u ExportUploader) OrderServiceOption {
	return func(s *orderService) { s.uploader = u }
}

// WithClock overrides the time source used for order numbers.
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *orderService) { s.now = now }
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	discountSvc DiscountService,
	locker lock.Locker,
	charges pricing.Charges,
	numberPrefix string,
	opts ...OrderServiceOption,
) OrderService {
	s := &orderService{
		db:          db,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		discountSvc: discountSvc,
		locker:      locker,
		charges:     charges,
		prefix:      numberPrefix,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *orderService) CreateOrderFromCart(ctx context.Context, userID uint, input CreateOrderInput) (*model.Order, *DiscountResult, error) {
	logger.Info("Creating order from cart", map[string]interface{}{
		"user_id":    userID,
		"offer_code": input.OfferCode,
	})

	orderID, err := s.checkout(ctx, userID, input)
	if err != nil {
		return nil, nil, err
	}

	var discount *DiscountResult
	if code := strings.TrimSpace(input.OfferCode); code != "" {
		discount, err = s.discountSvc.ApplyBestDiscount(ctx, userID, orderID, code)
		if err != nil {
			// the order is already committed; report it without the discount
			logger.Error("Failed to apply discount to new order", err, map[string]interface{}{
				"user_id":  userID,
				"order_id": orderID,
			})
			discount = nil
		}
	}

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, nil, persistenceError(err)
	}
	return order, discount, nil
}

// checkout runs under the cart lock: read items, price them, persist the order and clear the cart.
func (s *orderService) checkout(ctx context.Context, userID uint, input CreateOrderInput) (uint, error) {
	release, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return 0, err
	}
	defer release()

	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot create order: no cart", map[string]interface{}{
				"user_id": userID,
			})
			return 0, ErrNoActiveCart
		}
		return 0, persistenceError(err)
	}

	items, err := s.cartRepo.GetItems(cart.ID)
	if err != nil {
		return 0, persistenceError(err)
	}
	if len(items) == 0 {
		logger.Warn("Cannot create order: cart is empty", map[string]interface{}{
			"user_id": userID,
		})
		return 0, ErrEmptyCart
	}

	now := s.now()
	numberPrefix := s.prefix + now.Format("20060102")

	releaseNumber, err := s.locker.Lock(ctx, "order-number:"+now.Format("20060102"))
	if err != nil {
		return 0, err
	}
	defer releaseNumber()

	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		order, err := s.buildOrder(userID, items, input)
		if err != nil {
			return 0, err
		}

		err = s.persistOrder(cart.ID, numberPrefix, order)
		if err == nil {
			logger.Info("Order created successfully", map[string]interface{}{
				"user_id":      userID,
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"total":        order.Total.String(),
				"item_count":   len(order.OrderItems),
			})
			return order.ID, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			if errors.Is(err, ErrNoActiveCart) {
				return 0, err
			}
			logger.Error("Failed to persist order", err, map[string]interface{}{
				"user_id": userID,
			})
			return 0, persistenceError(err)
		}
		logger.Warn("Order number collision, retrying", map[string]interface{}{
			"user_id": userID,
			"attempt": attempt,
		})
	}
	return 0, persistenceError(fmt.Errorf("could not allocate an order number after %d attempts", orderNumberAttempts))
}

// buildOrder prices the cart from the snapshotted line prices.
func (s *orderService) buildOrder(userID uint, items []model.CartItem, input CreateOrderInput) (*model.Order, error) {
	order := &model.Order{
		UserID:   userID,
		Status:   model.OrderStatusPending,
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Notes:    input.Notes,
	}
	order.SetShipping(input.Shipping)
	if input.Billing != nil {
		order.SetBilling(*input.Billing)
	} else {
		order.SetBilling(input.Shipping)
	}

	for _, item := range items {
		if item.Product == nil {
			logger.Warn("Cart line references a missing product", map[string]interface{}{
				"user_id":    userID,
				"product_id": item.ProductID,
			})
			return nil, ErrProductNotFound
		}
		line := model.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Total:       item.LineTotal(),
		}
		order.OrderItems = append(order.OrderItems, line)
		order.Subtotal = order.Subtotal.Add(line.Total)
	}

	order.Tax = s.charges.Tax(order.Subtotal)
	order.Shipping = s.charges.Shipping(order.Subtotal)
	order.RecalculateTotal()
	return order, nil
}

// persistOrder assigns the next number for the date and writes the order, its items and the
// emptied cart in one transaction.
func (s *orderService) persistOrder(cartID uint, numberPrefix string, order *model.Order) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during order creation, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"user_id": order.UserID,
			})
			panic(r)
		}
	}()

	var cart model.Cart
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cart, cartID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveCart
		}
		return err
	}

	orders := repository.NewOrderRepository(tx)
	seq, err := orders.MaxSequenceForPrefix(numberPrefix)
	if err != nil {
		tx.Rollback()
		return err
	}
	order.OrderNumber = fmt.Sprintf("%s%04d", numberPrefix, seq+1)

	if err := orders.Create(order); err != nil {
		tx.Rollback()
		return err
	}

	if err := repository.NewCartRepository(tx).ClearCart(cartID); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// UpdateOrderStatus moves a pending order to completed or cancelled. Completion takes stock for
// every line; a shortfall on any line aborts the whole transition.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, persistenceError(tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var order model.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("OrderItems").
		First(&order, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, persistenceError(err)
	}

	if !order.Status.CanTransitionTo(status) {
		tx.Rollback()
		logger.Warn("Rejected order status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       status,
		})
		return nil, ErrInvalidTransition
	}

	// the status guard makes a concurrent duplicate transition a no-op
	res := tx.Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Update("status", status)
	if res.Error != nil {
		tx.Rollback()
		return nil, persistenceError(res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrInvalidTransition
	}

	if status == model.OrderStatusCompleted {
		products := repository.NewProductRepository(tx)
		for _, item := range order.OrderItems {
			ok, err := products.DecrementStock(item.ProductID, item.Quantity)
			if err != nil {
				tx.Rollback()
				return nil, persistenceError(err)
			}
			if !ok {
				tx.Rollback()
				logger.Warn("Order completion failed: insufficient stock", map[string]interface{}{
					"order_id":   orderID,
					"product_id": item.ProductID,
					"quantity":   item.Quantity,
				})
				return nil, ErrInsufficientStock
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, persistenceError(err)
	}

	order.Status = status
	if s.notifier != nil {
		s.notifier.NotifyOrderStatus(order.UserID, &order)
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})
	return &order, nil
}

func (s *orderService) GetOrderByID(userID, orderID uint, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, persistenceError(err)
	}
	if !isAdmin && order.UserID != userID {
		logger.Warn("Order access denied: ownership mismatch", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) GetOrderByNumber(userID uint, orderNumber string, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.FindByNumber(orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, persistenceError(err)
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) GetUserOrders(userID uint, page, perPage int) ([]model.Order, int64, error) {
	limit, offset := paginate(page, perPage)
	orders, total, err := s.orderRepo.FindByUserID(userID, limit, offset)
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, 0, persistenceError(err)
	}
	return orders, total, nil
}

func (s *orderService) GetOrdersSummary() (*repository.OrderSummary, error) {
	summary, err := s.orderRepo.GetSummary()
	if err != nil {
		return nil, persistenceError(err)
	}
	return summary, nil
}

func (s *orderService) SearchOrders(query string) ([]model.Order, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Order{}, nil
	}
	orders, err := s.orderRepo.Search(query, orderSearchLimit)
	if err != nil {
		return nil, persistenceError(err)
	}
	return orders, nil
}

func (s *orderService) GetMonthlySales(year int) ([]repository.MonthlySales, error) {
	sales, err := s.orderRepo.MonthlySales(year)
	if err != nil {
		return nil, persistenceError(err)
	}
	return sales, nil
}
