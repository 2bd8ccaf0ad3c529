// Package pricing holds the offer rules: eligibility windows, applicability scope, discount
// amounts and best-offer selection. Everything here works on plain values; callers load the data.
package pricing

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// OrderLine is the part of an order line the scope rules look at.
type OrderLine struct {
	ProductID  uint
	CategoryID *uint
}

// OrderContext is what an offer is evaluated against.
type OrderContext struct {
	Subtotal decimal.Decimal
	Lines    []OrderLine
}

func (c OrderContext) productIDs() []uint {
	ids := make([]uint, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

func (c OrderContext) categoryIDs() []uint {
	ids := make([]uint, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.CategoryID != nil {
			ids = append(ids, *l.CategoryID)
		}
	}
	return ids
}

// IsActiveAt reports whether the offer is switched on and now falls inside [starts_at, expires_at].
func IsActiveAt(offer *model.Offer, now time.Time) bool {
	if !offer.IsActive {
		return false
	}
	if offer.StartsAt != nil && now.Before(*offer.StartsAt) {
		return false
	}
	if offer.ExpiresAt != nil && now.After(*offer.ExpiresAt) {
		return false
	}
	return true
}

// UserLimitReached compares the ledger count against max_uses_per_user.
func UserLimitReached(offer *model.Offer, userTimesUsed int) bool {
	return offer.MaxUsesPerUser != nil && userTimesUsed >= *offer.MaxUsesPerUser
}

// GlobalLimitReached compares times_used against max_uses.
func GlobalLimitReached(offer *model.Offer) bool {
	return offer.MaxUses != nil && offer.TimesUsed >= *offer.MaxUses
}

// IsApplicable checks the minimum order amount and the product/category scope. An empty scope list
// does not restrict the offer.
func IsApplicable(offer *model.Offer, order OrderContext) bool {
	if offer.MinOrderAmount.Valid && order.Subtotal.LessThan(offer.MinOrderAmount.Decimal) {
		return false
	}

	switch offer.ApplyTo {
	case model.OfferScopeProducts, model.OfferScopeSpecificProducts:
		if len(offer.ApplicableProducts) > 0 {
			return offer.ApplicableProducts.Intersects(order.productIDs())
		}
	case model.OfferScopeCategories:
		if len(offer.ApplicableCategories) > 0 {
			return offer.ApplicableCategories.Intersects(order.categoryIDs())
		}
	}
	return true
}

// Calculate returns the raw discount an offer grants on subtotal. implemented is false for offer
// types whose amount rule does not exist yet (buy_x_get_y, free_shipping); those always yield zero.
func Calculate(offer *model.Offer, subtotal decimal.Decimal) (amount decimal.Decimal, implemented bool) {
	switch offer.Type {
	case model.OfferTypePercentage:
		return subtotal.Mul(offer.DiscountValue).Div(hundred).Round(2), true
	case model.OfferTypeFixedAmount:
		return offer.DiscountValue, true
	default:
		return decimal.Zero, false
	}
}

// Candidate is one offer's computed discount.
type Candidate struct {
	Offer  *model.Offer
	Amount decimal.Decimal
}

// SelectBest picks the single largest positive candidate and clamps its amount to [0, subtotal].
// Earlier candidates win ties. ok is false when nothing positive was offered.
func SelectBest(candidates []Candidate, subtotal decimal.Decimal) (best Candidate, ok bool) {
	for _, c := range candidates {
		if !c.Amount.IsPositive() {
			continue
		}
		if !ok || c.Amount.GreaterThan(best.Amount) {
			best, ok = c, true
		}
	}
	if !ok {
		return Candidate{}, false
	}
	best.Amount = Clamp(best.Amount, subtotal)
	return best, true
}

// Clamp bounds a discount to [0, subtotal].
func Clamp(amount, subtotal decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}
