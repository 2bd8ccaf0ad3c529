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
	ErrOfferNotFound   = errors.New("offer not found")
	ErrOfferCodeTaken  = errors.New("offer code already exists")
	ErrInvalidOffer    = errors.New("invalid offer definition")
	ErrOrderNotPending = errors.New("order is not pending")
	ErrPersistence     = errors.New("persistence failure")
)

// errUsageRace means a guarded counter update matched no row: another redemption got there first.
var errUsageRace = errors.New("offer usage limit reached concurrently")

func persistenceError(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// ValidationReason classifies why an offer code was rejected.
type ValidationReason string

const (
	ReasonNotFound            ValidationReason = "NOT_FOUND"
	ReasonInactive            ValidationReason = "INACTIVE"
	ReasonUserLimitExceeded   ValidationReason = "USER_LIMIT_EXCEEDED"
	ReasonGlobalLimitExceeded ValidationReason = "GLOBAL_LIMIT_EXCEEDED"
	ReasonNotApplicable       ValidationReason = "NOT_APPLICABLE"
)

var reasonMessages = map[ValidationReason]string{
	ReasonNotFound:            "Invalid offer code.",
	ReasonInactive:            "This offer is not currently active.",
	ReasonUserLimitExceeded:   "You have already used this offer the maximum number of times.",
	ReasonGlobalLimitExceeded: "This offer has reached its maximum number of uses.",
	ReasonNotApplicable:       "This offer is not applicable to your order.",
}

const offerAcceptedMessage = "Offer code applied successfully."

// OfferValidation is the outcome of checking a code. Rejections are values, not errors.
type OfferValidation struct {
	Valid   bool             `json:"valid"`
	Reason  ValidationReason `json:"reason,omitempty"`
	Message string           `json:"message"`
	Offer   *model.Offer     `json:"offer,omitempty"`
}

func rejected(reason ValidationReason) *OfferValidation {
	return &OfferValidation{Valid: false, Reason: reason, Message: reasonMessages[reason]}
}

// DiscountDetail is one line of the breakdown shown to the customer.
type DiscountDetail struct {
	OfferID   uint            `json:"offer_id"`
	OfferName string          `json:"offer_name"`
	OfferCode *string         `json:"offer_code,omitempty"`
	Type      model.OfferType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
}

type DiscountResult struct {
	OrderID        uint               `json:"order_id"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	NewTotal       decimal.Decimal    `json:"new_total"`
	AppliedOffers  []model.OrderOffer `json:"applied_offers"`
	Details        []DiscountDetail   `json:"details"`
	CodeRejection  *OfferValidation   `json:"code_rejection,omitempty"`
}

// OfferInput is the admin payload for creating or editing an offer.
type OfferInput struct {
	Name                 string              `json:"name" binding:"required,max=255"`
	Code                 *string             `json:"code" binding:"omitempty,max=50"`
	Description          string              `json:"description"`
	Type                 model.OfferType     `json:"type" binding:"required,oneof=percentage fixed_amount buy_x_get_y free_shipping"`
	DiscountValue        decimal.Decimal     `json:"discount_value"`
	MinOrderAmount       decimal.NullDecimal `json:"min_order_amount"`
	MaxUses              *int                `json:"max_uses" binding:"omitempty,min=1"`
	MaxUsesPerUser       *int                `json:"max_uses_per_user" binding:"omitempty,min=1"`
	StartsAt             *time.Time          `json:"starts_at"`
	ExpiresAt            *time.Time          `json:"expires_at"`
	IsActive             *bool               `json:"is_active"`
	ApplyTo              model.OfferScope    `json:"apply_to" binding:"omitempty,oneof=all products categories specific_products"`
	ApplicableProducts   []uint              `json:"applicable_products"`
	ApplicableCategories []uint              `json:"applicable_categories"`
}

type DiscountService interface {
	ValidateOfferCode(ctx context.Context, code string, userID uint, order *model.Order) (*OfferValidation, error)
	ApplyBestDiscount(ctx context.Context, userID, orderID uint, code string) (*DiscountResult, error)
	RemoveDiscount(ctx context.Context, userID, orderID uint) (*DiscountResult, error)
	GetOrderDiscount(ctx context.Context, userID, orderID uint) (*DiscountResult, error)
	ListActiveOffers(ctx context.Context) ([]model.Offer, error)
	GetOffer(ctx context.Context, id uint) (*model.Offer, error)
	ListOffers(ctx context.Context, page, perPage int) ([]model.Offer, int64, error)
	CreateOffer(ctx context.Context, input OfferInput) (*model.Offer, error)
	UpdateOffer(ctx context.Context, id uint, input OfferInput) (*model.Offer, error)
	DeactivateOffer(ctx context.Context, id uint) error
	DeactivateExpiredOffers(ctx context.Context) (int64, error)
}

type discountService struct {
	offerRepo   repository.OfferRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	db          *gorm.DB
	locker      lock.Locker
	now         func() time.Time
}

func NewDiscountService(
	offerRepo repository.OfferRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	db *gorm.DB,
	locker lock.Locker,
) DiscountService {
	return &discountService{
		offerRepo:   offerRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		db:          db,
		locker:      locker,
		now:         time.Now,
	}
}

func discountLockKey(userID uint) string {
	return fmt.Sprintf("discount:user:%d", userID)
}

// orderContext loads what the scope rules need: line products and their categories.
func (s *discountService) orderContext(order *model.Order) (pricing.OrderContext, error) {
	octx := pricing.OrderContext{Subtotal: order.Subtotal}

	items := order.OrderItems
	if len(items) == 0 && order.ID != 0 {
		loaded, err := s.orderRepo.FindByID(order.ID)
		if err != nil {
			return octx, err
		}
		items = loaded.OrderItems
	}
	if len(items) == 0 {
		return octx, nil
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ids)
	if err != nil {
		return octx, err
	}
	categoryOf := make(map[uint]*uint, len(products))
	for i := range products {
		categoryOf[products[i].ID] = products[i].CategoryID
	}

	for _, item := range items {
		octx.Lines = append(octx.Lines, pricing.OrderLine{
			ProductID:  item.ProductID,
			CategoryID: categoryOf[item.ProductID],
		})
	}
	return octx, nil
}

func (s *discountService) ValidateOfferCode(ctx context.Context, code string, userID uint, order *model.Order) (*OfferValidation, error) {
	var octx *pricing.OrderContext
	if order != nil {
		built, err := s.orderContext(order)
		if err != nil {
			logger.Error("Failed to load order for offer validation", err, map[string]interface{}{
				"order_id": order.ID,
			})
			return nil, persistenceError(err)
		}
		octx = &built
	}

	validation, err := s.validate(strings.TrimSpace(code), userID, octx, s.now())
	if err != nil {
		return nil, err
	}

	logger.Debug("Offer code validated", map[string]interface{}{
		"code":    code,
		"user_id": userID,
		"valid":   validation.Valid,
		"reason":  validation.Reason,
	})
	return validation, nil
}

// validate runs the rejection checks in order: existence, window, user cap, global cap, and scope
// (only when an order is given).
func (s *discountService) validate(code string, userID uint, octx *pricing.OrderContext, now time.Time) (*OfferValidation, error) {
	if code == "" {
		return rejected(ReasonNotFound), nil
	}

	offer, err := s.offerRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rejected(ReasonNotFound), nil
		}
		logger.Error("Failed to look up offer code", err, map[string]interface{}{
			"code": code,
		})
		return nil, persistenceError(err)
	}

	if !pricing.IsActiveAt(offer, now) {
		return rejected(ReasonInactive), nil
	}

	if offer.MaxUsesPerUser != nil {
		used, err := s.offerRepo.GetUserUsageCount(offer.ID, userID)
		if err != nil {
			return nil, persistenceError(err)
		}
		if pricing.UserLimitReached(offer, used) {
			return rejected(ReasonUserLimitExceeded), nil
		}
	}

	if pricing.GlobalLimitReached(offer) {
		return rejected(ReasonGlobalLimitExceeded), nil
	}

	if octx != nil && !pricing.IsApplicable(offer, *octx) {
		return rejected(ReasonNotApplicable), nil
	}

	return &OfferValidation{Valid: true, Message: offerAcceptedMessage, Offer: offer}, nil
}

// candidate computes an offer's discount and the breakdown line describing it.
func (s *discountService) candidate(offer *model.Offer, subtotal decimal.Decimal) (pricing.Candidate, *DiscountDetail) {
	amount, implemented := pricing.Calculate(offer, subtotal)
	if implemented {
		return pricing.Candidate{Offer: offer, Amount: amount}, nil
	}

	logger.Warn("Offer type discount is not implemented", map[string]interface{}{
		"offer_id": offer.ID,
		"type":     offer.Type,
	})
	return pricing.Candidate{Offer: offer, Amount: decimal.Zero}, &DiscountDetail{
		OfferID:   offer.ID,
		OfferName: offer.Name,
		OfferCode: offer.Code,
		Type:      offer.Type,
		Amount:    decimal.Zero,
		Note:      fmt.Sprintf("%s discounts are not yet implemented", offer.Type),
	}
}

// automaticCandidates evaluates every code-less offer the user may still redeem.
func (s *discountService) automaticCandidates(userID uint, octx pricing.OrderContext, now time.Time) ([]pricing.Candidate, []DiscountDetail, error) {
	offers, err := s.offerRepo.GetActiveOffers(now)
	if err != nil {
		return nil, nil, persistenceError(err)
	}

	var (
		candidates []pricing.Candidate
		notes      []DiscountDetail
	)
	for i := range offers {
		offer := &offers[i]
		if !offer.IsAutomatic() {
			continue
		}
		if pricing.GlobalLimitReached(offer) || !pricing.IsApplicable(offer, octx) {
			continue
		}
		if offer.MaxUsesPerUser != nil {
			used, err := s.offerRepo.GetUserUsageCount(offer.ID, userID)
			if err != nil {
				return nil, nil, persistenceError(err)
			}
			if pricing.UserLimitReached(offer, used) {
				continue
			}
		}

		c, note := s.candidate(offer, octx.Subtotal)
		if note != nil {
			notes = append(notes, *note)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, notes, nil
}

func (s *discountService) loadOwnedOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, persistenceError(err)
	}
	if order.UserID != userID {
		logger.Warn("Discount access denied: ownership mismatch", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"owner_id": order.UserID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *discountService) ApplyBestDiscount(ctx context.Context, userID, orderID uint, code string) (*DiscountResult, error) {
	code = strings.TrimSpace(code)
	logger.Info("Applying best discount", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
		"code":     code,
	})

	release, err := s.locker.Lock(ctx, discountLockKey(userID))
	if err != nil {
		logger.Error("Failed to acquire discount lock", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	defer release()

	order, err := s.loadOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	octx, err := s.orderContext(order)
	if err != nil {
		return nil, persistenceError(err)
	}
	now := s.now()

	result := &DiscountResult{OrderID: order.ID, AppliedOffers: []model.OrderOffer{}, Details: []DiscountDetail{}}

	var candidates []pricing.Candidate
	if code != "" {
		validation, err := s.validate(code, userID, &octx, now)
		if err != nil {
			return nil, err
		}
		if validation.Valid {
			c, note := s.candidate(validation.Offer, octx.Subtotal)
			if note != nil {
				result.Details = append(result.Details, *note)
			} else if c.Amount.IsPositive() {
				candidates = append(candidates, c)
			}
		} else {
			result.CodeRejection = validation
		}
	}

	if len(candidates) == 0 {
		auto, notes, err := s.automaticCandidates(userID, octx, now)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, auto...)
		result.Details = append(result.Details, notes...)
	}

	best, ok := pricing.SelectBest(candidates, octx.Subtotal)

	snapshot, err := s.persistDiscount(order.ID, userID, best, ok, now)
	if errors.Is(err, errUsageRace) {
		// Lost a redemption race on the guarded counters; report it like a failed validation.
		reason := ReasonGlobalLimitExceeded
		if best.Offer.MaxUsesPerUser != nil {
			if used, uerr := s.offerRepo.GetUserUsageCount(best.Offer.ID, userID); uerr == nil && pricing.UserLimitReached(best.Offer, used) {
				reason = ReasonUserLimitExceeded
			}
		}
		logger.Warn("Discount redemption lost a usage race", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"offer_id": best.Offer.ID,
			"reason":   reason,
		})
		snapshot, err = s.persistDiscount(order.ID, userID, pricing.Candidate{}, false, now)
		if err == nil {
			result.CodeRejection = rejected(reason)
		}
	}
	if err != nil {
		if errors.Is(err, ErrOrderNotPending) {
			return nil, err
		}
		return nil, persistenceError(err)
	}

	if snapshot.offer != nil {
		result.AppliedOffers = append(result.AppliedOffers, *snapshot.offer)
		result.Details = append([]DiscountDetail{{
			OfferID:   snapshot.offer.OfferID,
			OfferName: snapshot.offer.OfferName,
			OfferCode: snapshot.offer.OfferCode,
			Type:      snapshot.offer.OfferType,
			Amount:    snapshot.offer.DiscountAmount,
		}}, result.Details...)
	}
	result.DiscountAmount = snapshot.discount
	result.NewTotal = snapshot.total

	logger.Info("Discount applied", map[string]interface{}{
		"user_id":         userID,
		"order_id":        orderID,
		"discount_amount": result.DiscountAmount.String(),
		"new_total":       result.NewTotal.String(),
		"applied":         len(result.AppliedOffers),
		"code_rejected":   result.CodeRejection != nil,
	})
	return result, nil
}

type appliedSnapshot struct {
	offer    *model.OrderOffer
	discount decimal.Decimal
	total    decimal.Decimal
}

// persistDiscount writes the outcome in one transaction: the order row is locked and rechecked,
// usage counters are bumped with guarded updates, old snapshots are replaced, and the order's
// discount and total are rewritten. With ok=false it only clears the discount.
func (s *discountService) persistDiscount(orderID, userID uint, best pricing.Candidate, ok bool, now time.Time) (appliedSnapshot, error) {
	var out appliedSnapshot

	tx := s.db.Begin()
	if tx.Error != nil {
		return out, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during discount application, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"order_id": orderID,
			})
			panic(r)
		}
	}()

	var order model.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
		tx.Rollback()
		return out, err
	}
	if order.Status != model.OrderStatusPending {
		tx.Rollback()
		return out, ErrOrderNotPending
	}

	if ok {
		offer := best.Offer
		if err := recordUsage(tx, offer, userID, orderID, now); err != nil {
			tx.Rollback()
			return out, err
		}
		out.offer = &model.OrderOffer{
			OfferID:        offer.ID,
			OrderID:        orderID,
			OfferName:      offer.Name,
			OfferCode:      offer.Code,
			OfferType:      offer.Type,
			DiscountValue:  offer.DiscountValue,
			DiscountAmount: best.Amount,
			AppliedTo:      offer.ApplyTo,
		}
	}

	if err := tx.Where("order_id = ?", orderID).Delete(&model.OrderOffer{}).Error; err != nil {
		tx.Rollback()
		return out, err
	}
	if out.offer != nil {
		if err := tx.Create(out.offer).Error; err != nil {
			tx.Rollback()
			return out, err
		}
	}

	order.Discount = decimal.Zero
	if out.offer != nil {
		order.Discount = out.offer.DiscountAmount
	}
	order.RecalculateTotal()
	if err := tx.Model(&model.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"discount": order.Discount,
		"total":    order.Total,
	}).Error; err != nil {
		tx.Rollback()
		return out, err
	}

	if err := tx.Commit().Error; err != nil {
		return out, err
	}

	out.discount = order.Discount
	out.total = order.Total
	return out, nil
}

// recordUsage bumps the global counter and upserts the user's ledger row. Both increments are
// conditional on the caps so concurrent redemptions cannot overshoot them.
func recordUsage(tx *gorm.DB, offer *model.Offer, userID, orderID uint, now time.Time) error {
	global := tx.Model(&model.Offer{}).Where("id = ?", offer.ID)
	if offer.MaxUses != nil {
		global = global.Where("times_used < ?", *offer.MaxUses)
	}
	res := global.Update("times_used", gorm.Expr("times_used + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errUsageRace
	}

	var usage model.OfferUsage
	if err := tx.Where("offer_id = ? AND user_id = ?", offer.ID, userID).Limit(1).Find(&usage).Error; err != nil {
		return err
	}

	if usage.ID == 0 {
		if offer.MaxUsesPerUser != nil && *offer.MaxUsesPerUser < 1 {
			return errUsageRace
		}
		usage = model.OfferUsage{
			OfferID:     offer.ID,
			UserID:      userID,
			TimesUsed:   1,
			FirstUsedAt: now,
			LastUsedAt:  now,
			OrderIDs:    model.IDList{orderID},
		}
		if err := tx.Create(&usage).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errUsageRace
			}
			return err
		}
		return nil
	}

	orderIDs := usage.OrderIDs
	if !orderIDs.Contains(orderID) {
		orderIDs = append(orderIDs, orderID)
	}
	ledger := tx.Model(&model.OfferUsage{}).Where("id = ?", usage.ID)
	if offer.MaxUsesPerUser != nil {
		ledger = ledger.Where("times_used < ?", *offer.MaxUsesPerUser)
	}
	res = ledger.Updates(map[string]interface{}{
		"times_used":   gorm.Expr("times_used + 1"),
		"last_used_at": now,
		"order_ids":    orderIDs,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errUsageRace
	}
	return nil
}

func (s *discountService) RemoveDiscount(ctx context.Context, userID, orderID uint) (*DiscountResult, error) {
	logger.Info("Removing discount", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})

	release, err := s.locker.Lock(ctx, discountLockKey(userID))
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.loadOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		logger.Warn("Cannot remove discount from non-pending order", map[string]interface{}{
			"order_id": orderID,
			"status":   order.Status,
		})
		return nil, ErrOrderNotPending
	}

	snapshot, err := s.persistDiscount(orderID, userID, pricing.Candidate{}, false, s.now())
	if err != nil {
		if errors.Is(err, ErrOrderNotPending) {
			return nil, err
		}
		return nil, persistenceError(err)
	}

	return &DiscountResult{
		OrderID:        orderID,
		DiscountAmount: snapshot.discount,
		NewTotal:       snapshot.total,
		AppliedOffers:  []model.OrderOffer{},
		Details:        []DiscountDetail{},
	}, nil
}

// GetOrderDiscount reports the discount currently recorded on one of the user's orders.
func (s *discountService) GetOrderDiscount(ctx context.Context, userID, orderID uint) (*DiscountResult, error) {
	order, err := s.loadOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.offerRepo.FindOrderOffers(order.ID)
	if err != nil {
		logger.Error("Failed to load applied offers", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, persistenceError(err)
	}

	result := &DiscountResult{
		OrderID:        order.ID,
		DiscountAmount: order.Discount,
		NewTotal:       order.Total,
		AppliedOffers:  snapshots,
		Details:        make([]DiscountDetail, 0, len(snapshots)),
	}
	if result.AppliedOffers == nil {
		result.AppliedOffers = []model.OrderOffer{}
	}
	for _, snap := range snapshots {
		result.Details = append(result.Details, DiscountDetail{
			OfferID:   snap.OfferID,
			OfferName: snap.OfferName,
			OfferCode: snap.OfferCode,
			Type:      snap.OfferType,
			Amount:    snap.DiscountAmount,
		})
	}
	return result, nil
}

func (s *discountService) ListActiveOffers(ctx context.Context) ([]model.Offer, error) {
	offers, err := s.offerRepo.GetActiveOffers(s.now())
	if err != nil {
		return nil, persistenceError(err)
	}
	return offers, nil
}

func (s *discountService) GetOffer(ctx context.Context, id uint) (*model.Offer, error) {
	offer, err := s.offerRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, persistenceError(err)
	}
	return offer, nil
}

func (s *discountService) ListOffers(ctx context.Context, page, perPage int) ([]model.Offer, int64, error) {
	limit, offset := paginate(page, perPage)
	offers, total, err := s.offerRepo.FindAll(limit, offset)
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return offers, total, nil
}

func (s *discountService) CreateOffer(ctx context.Context, input OfferInput) (*model.Offer, error) {
	offer := &model.Offer{IsActive: true, ApplyTo: model.OfferScopeAll}
	if err := applyOfferInput(offer, input); err != nil {
		return nil, err
	}

	if err := s.offerRepo.Create(offer); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOfferCodeTaken
		}
		return nil, persistenceError(err)
	}

	logger.Info("Offer created", map[string]interface{}{
		"offer_id": offer.ID,
		"code":     offer.Code,
		"type":     offer.Type,
	})
	return offer, nil
}

func (s *discountService) UpdateOffer(ctx context.Context, id uint, input OfferInput) (*model.Offer, error) {
	offer, err := s.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyOfferInput(offer, input); err != nil {
		return nil, err
	}

	if err := s.offerRepo.Update(offer); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOfferCodeTaken
		}
		return nil, persistenceError(err)
	}

	logger.Info("Offer updated", map[string]interface{}{
		"offer_id": offer.ID,
	})
	return offer, nil
}

func (s *discountService) DeactivateOffer(ctx context.Context, id uint) error {
	if err := s.offerRepo.Deactivate(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOfferNotFound
		}
		return persistenceError(err)
	}
	logger.Info("Offer deactivated", map[string]interface{}{
		"offer_id": id,
	})
	return nil
}

func (s *discountService) DeactivateExpiredOffers(ctx context.Context) (int64, error) {
	n, err := s.offerRepo.DeactivateExpired(s.now())
	if err != nil {
		return 0, persistenceError(err)
	}
	if n > 0 {
		logger.Info("Expired offers deactivated", map[string]interface{}{
			"count": n,
		})
	}
	return n, nil
}

func applyOfferInput(offer *model.Offer, input OfferInput) error {
	if input.DiscountValue.IsNegative() {
		return fmt.Errorf("%w: discount_value must not be negative", ErrInvalidOffer)
	}
	if input.Type == model.OfferTypePercentage && input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: percentage cannot exceed 100", ErrInvalidOffer)
	}
	if input.StartsAt != nil && input.ExpiresAt != nil && input.ExpiresAt.Before(*input.StartsAt) {
		return fmt.Errorf("%w: expires_at is before starts_at", ErrInvalidOffer)
	}

	offer.Name = input.Name
	offer.Description = input.Description
	offer.Type = input.Type
	offer.DiscountValue = input.DiscountValue
	offer.MinOrderAmount = input.MinOrderAmount
	offer.MaxUses = input.MaxUses
	offer.MaxUsesPerUser = input.MaxUsesPerUser
	offer.StartsAt = input.StartsAt
	offer.ExpiresAt = input.ExpiresAt
	offer.ApplicableProducts = model.IDList(input.ApplicableProducts)
	offer.ApplicableCategories = model.IDList(input.ApplicableCategories)

	offer.Code = nil
	if input.Code != nil {
		if code := strings.TrimSpace(*input.Code); code != "" {
			offer.Code = &code
		}
	}
	if input.ApplyTo != "" {
		offer.ApplyTo = input.ApplyTo
	}
	if input.IsActive != nil {
		offer.IsActive = *input.IsActive
	}
	return nil
}

// paginate turns 1-based page numbers into limit/offset. perPage is capped at 100.
func paginate(page, perPage int) (limit, offset int) {
	if perPage <= 0 {
		perPage = 15
	}
	if perPage > 100 {
		perPage = 100
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
