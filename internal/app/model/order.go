package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// CanTransitionTo reports whether next is a legal move from s. Completed and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && (next == OrderStatusCompleted || next == OrderStatusCancelled)
}

// ContactInfo is the shipping or billing snapshot captured on an order.
type ContactInfo struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address" binding:"required"`
}

type Order struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	OrderNumber string          `gorm:"uniqueIndex;size:32;not null" json:"order_number"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Tax         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Shipping    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`

	ShippingName    string `json:"shipping_name"`
	ShippingEmail   string `json:"shipping_email"`
	ShippingPhone   string `json:"shipping_phone"`
	ShippingAddress string `gorm:"type:text" json:"shipping_address"`
	BillingName     string `json:"billing_name"`
	BillingEmail    string `json:"billing_email"`
	BillingPhone    string `json:"billing_phone"`
	BillingAddress  string `gorm:"type:text" json:"billing_address"`
	Notes           string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User       *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderItems []OrderItem  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
	Offers     []OrderOffer `gorm:"foreignKey:OrderID" json:"applied_offers,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// RecalculateTotal applies total = subtotal + tax + shipping - discount.
func (o *Order) RecalculateTotal() {
	o.Total = o.Subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount)
}

// SetShipping copies the shipping snapshot onto the order.
func (o *Order) SetShipping(c ContactInfo) {
	o.ShippingName, o.ShippingEmail, o.ShippingPhone, o.ShippingAddress = c.Name, c.Email, c.Phone, c.Address
}

// SetBilling copies the billing snapshot onto the order.
func (o *Order) SetBilling(c ContactInfo) {
	o.BillingName, o.BillingEmail, o.BillingPhone, o.BillingAddress = c.Name, c.Email, c.Phone, c.Address
}

type OrderItem struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"not null" json:"product_name"` // name at time of purchase
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"` // unit price at time of purchase
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// BeforeSave keeps Total in step with Price and Quantity.
func (i *OrderItem) BeforeSave(tx *gorm.DB) error {
	i.Total = i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
	return nil
}
