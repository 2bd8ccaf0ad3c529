package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	CategoryID  *uint               `gorm:"index" json:"category_id"`
	Name        string              `gorm:"not null" json:"name"`
	Slug        string              `gorm:"uniqueIndex;not null" json:"slug"`
	Description string              `gorm:"type:text" json:"description"`
	Price       decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	SalePrice   decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"sale_price"`
	Stock       int                 `gorm:"not null;default:0" json:"stock"`
	SKU         string              `gorm:"column:sku;uniqueIndex;not null" json:"sku"`
	IsActive    bool                `gorm:"not null" json:"is_active"`
	IsFeatured  bool                `gorm:"default:false" json:"is_featured"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	DeletedAt   gorm.DeletedAt      `gorm:"index" json:"-"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// FinalPrice is the sale price when one is set, otherwise the list price.
func (p *Product) FinalPrice() decimal.Decimal {
	if p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.Price
}

func (p *Product) InStock() bool {
	return p.Stock > 0
}
