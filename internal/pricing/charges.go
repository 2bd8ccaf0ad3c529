package pricing

import "github.com/shopspring/decimal"

// Charges are the order-level add-ons computed from a subtotal.
type Charges struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

// Tax is subtotal × rate rounded to cents.
func (c Charges) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(c.TaxRate).Round(2)
}

// Shipping is the flat fee for a non-empty subtotal and zero otherwise.
func (c Charges) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsPositive() {
		return c.ShippingFee
	}
	return decimal.Zero
}

// Total is subtotal + tax + shipping - discount.
func Total(subtotal, tax, shipping, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Add(shipping).Sub(discount)
}
