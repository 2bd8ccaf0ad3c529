package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OfferType string

const (
	OfferTypePercentage   OfferType = "percentage"
	OfferTypeFixedAmount  OfferType = "fixed_amount"
	OfferTypeBuyXGetY     OfferType = "buy_x_get_y"
	OfferTypeFreeShipping OfferType = "free_shipping"
)

type OfferScope string

const (
	OfferScopeAll              OfferScope = "all"
	OfferScopeProducts         OfferScope = "products"
	OfferScopeCategories       OfferScope = "categories"
	OfferScopeSpecificProducts OfferScope = "specific_products"
)

// Offer is a promotional rule. A nil Code marks an automatic offer.
type Offer struct {
	ID                   uint                `gorm:"primarykey" json:"id"`
	Name                 string              `gorm:"not null" json:"name"`
	Code                 *string             `gorm:"uniqueIndex;size:50" json:"code"`
	Description          string              `gorm:"type:text" json:"description"`
	Type                 OfferType           `gorm:"type:varchar(20);not null" json:"type"`
	DiscountValue        decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"discount_value"`
	MinOrderAmount       decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"min_order_amount"`
	MaxUses              *int                `json:"max_uses"`
	MaxUsesPerUser       *int                `json:"max_uses_per_user"`
	StartsAt             *time.Time          `json:"starts_at"`
	ExpiresAt            *time.Time          `json:"expires_at"`
	IsActive             bool                `gorm:"not null;index" json:"is_active"`
	ApplyTo              OfferScope          `gorm:"type:varchar(20);default:'all'" json:"apply_to"`
	ApplicableProducts   IDList              `json:"applicable_products"`
	ApplicableCategories IDList              `json:"applicable_categories"`
	TimesUsed            int                 `gorm:"not null;default:0" json:"times_used"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	DeletedAt            gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (Offer) TableName() string {
	return "offers"
}

// IsAutomatic reports whether the offer applies without a code.
func (o *Offer) IsAutomatic() bool {
	return o.Code == nil
}

// OfferUsage is the per-user redemption ledger for an offer.
type OfferUsage struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OfferID     uint      `gorm:"not null;uniqueIndex:idx_offer_user_pair" json:"offer_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_offer_user_pair;index" json:"user_id"`
	TimesUsed   int       `gorm:"not null;default:0" json:"times_used"`
	FirstUsedAt time.Time `json:"first_used_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
	OrderIDs    IDList    `gorm:"column:order_ids" json:"order_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (OfferUsage) TableName() string {
	return "offer_user"
}

// OrderOffer freezes what an offer granted on a specific order.
type OrderOffer struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	OfferID        uint            `gorm:"not null;uniqueIndex:idx_offer_order_pair" json:"offer_id"`
	OrderID        uint            `gorm:"not null;uniqueIndex:idx_offer_order_pair;index" json:"order_id"`
	OfferName      string          `gorm:"not null" json:"offer_name"`
	OfferCode      *string         `gorm:"size:50" json:"offer_code"`
	OfferType      OfferType       `gorm:"type:varchar(20);not null" json:"offer_type"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_value"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	AppliedTo      OfferScope      `gorm:"type:varchar(20)" json:"applied_to"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (OrderOffer) TableName() string {
	return "offer_order"
}
