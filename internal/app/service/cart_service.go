package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/pkg/lock"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)

// CartSummary is the priced view of a cart. Discounts are only applied to orders, so Discount is always zero here.
type CartSummary struct {
	ItemsCount int              `json:"items_count"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
	Tax        decimal.Decimal  `json:"tax"`
	Shipping   decimal.Decimal  `json:"shipping"`
	Discount   decimal.Decimal  `json:"discount"`
	Total      decimal.Decimal  `json:"total"`
	Items      []model.CartItem `json:"items"`
}

// GuestCartItem is a line carried over from an anonymous session.
type GuestCartItem struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type CartService interface {
	GetCart(userID uint) ([]model.CartItem, error)
	GetCartSummary(userID uint) (*CartSummary, error)
	AddItem(ctx context.Context, userID, productID uint, quantity int) error
	UpdateItem(ctx context.Context, userID, itemID uint, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID uint) error
	ClearCart(ctx context.Context, userID uint) error
	MergeGuestCart(ctx context.Context, userID uint, items []GuestCartItem) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	locker      lock.Locker
	charges     pricing.Charges
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	locker lock.Locker,
	charges pricing.Charges,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		locker:      locker,
		charges:     charges,
	}
}

// cartLockKey is shared with order creation so checkout never interleaves with a cart edit.
func cartLockKey(userID uint) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (s *cartService) GetCart(userID uint) ([]model.CartItem, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []model.CartItem{}, nil
		}
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	items, err := s.cartRepo.GetItems(cart.ID)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *cartService) GetCartSummary(userID uint) (*CartSummary, error) {
	items, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}

	summary := &CartSummary{Subtotal: decimal.Zero, Discount: decimal.Zero, Items: items}
	for i := range items {
		summary.ItemsCount += items[i].Quantity
		summary.Subtotal = summary.Subtotal.Add(items[i].LineTotal())
	}
	summary.Tax = s.charges.Tax(summary.Subtotal)
	summary.Shipping = s.charges.Shipping(summary.Subtotal)
	summary.Total = pricing.Total(summary.Subtotal, summary.Tax, summary.Shipping, summary.Discount)
	return summary, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uint, quantity int) error {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return ErrInvalidQuantity
	}

	release, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return err
	}
	defer release()

	return s.addLocked(userID, productID, quantity)
}

// addLocked expects the caller to hold the cart lock.
func (s *cartService) addLocked(userID, productID uint, quantity int) error {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return ErrProductNotFound
		}
		return err
	}
	if !product.IsActive {
		return ErrProductUnavailable
	}

	cart, err := s.cartRepo.GetOrCreate(userID)
	if err != nil {
		logger.Error("Failed to resolve cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	// stock has to cover what is already in the cart plus the new quantity
	inCart := 0
	items, err := s.cartRepo.GetItems(cart.ID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ProductID == productID {
			inCart = item.Quantity
			break
		}
	}
	if product.Stock < inCart+quantity {
		logger.Warn("Cannot add to cart: insufficient stock", map[string]interface{}{
			"user_id":         userID,
			"product_id":      productID,
			"requested":       inCart + quantity,
			"available_stock": product.Stock,
		})
		return ErrInsufficientStock
	}

	if err := s.cartRepo.AddOrIncrement(&model.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     product.FinalPrice(),
	}); err != nil {
		logger.Error("Failed to add item to cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return err
	}

	logger.Info("Item added to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   inCart + quantity,
	})
	return nil
}

// ownedItem resolves an item only through the user's own cart.
func (s *cartService) ownedItem(userID, itemID uint) (*model.CartItem, error) {
	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	item, err := s.cartRepo.FindItem(cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cart item not found", map[string]interface{}{
				"user_id":      userID,
				"cart_item_id": itemID,
			})
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// UpdateItem sets an item's quantity; zero or less removes the line.
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uint, quantity int) error {
	logger.Info("Updating cart item", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	release, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return err
	}
	defer release()

	item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return s.cartRepo.DeleteItem(item.ID)
	}

	if item.Product == nil || item.Product.Stock < quantity {
		available := 0
		if item.Product != nil {
			available = item.Product.Stock
		}
		logger.Warn("Cannot update cart item: insufficient stock", map[string]interface{}{
			"user_id":         userID,
			"cart_item_id":    itemID,
			"requested":       quantity,
			"available_stock": available,
		})
		return ErrInsufficientStock
	}

	if err := s.cartRepo.UpdateItemQuantity(item.ID, quantity); err != nil {
		logger.Error("Failed to update cart item", err, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return err
	}
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uint) error {
	release, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return err
	}
	defer release()

	item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return err
	}
	if err := s.cartRepo.DeleteItem(item.ID); err != nil {
		logger.Error("Failed to remove cart item", err, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return err
	}

	logger.Info("Cart item removed", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
	})
	return nil
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) error {
	release, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return err
	}
	defer release()

	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := s.cartRepo.ClearCart(cart.ID); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	logger.Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// MergeGuestCart adds anonymous-session lines to the user's cart. Lines that cannot be added
// (missing product, inactive, short on stock) are skipped and logged.
func (s *cartService) MergeGuestCart(ctx context.Context, userID uint, items []GuestCartItem) error {
	release, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return err
	}
	defer release()

	merged := 0
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		err := s.addLocked(userID, item.ProductID, item.Quantity)
		switch {
		case err == nil:
			merged++
		case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrProductUnavailable), errors.Is(err, ErrInsufficientStock):
			logger.Warn("Skipping guest cart line", map[string]interface{}{
				"user_id":    userID,
				"product_id": item.ProductID,
				"reason":     err.Error(),
			})
		default:
			return err
		}
	}

	logger.Info("Guest cart merged", map[string]interface{}{
		"user_id": userID,
		"lines":   len(items),
		"merged":  merged,
	})
	return nil
}
