package domain

// ShippingPolicy decides the flat shipping fee for an order. Orders whose
// subtotal reaches FreeAbove ship free.
type ShippingPolicy struct {
	FreeAbove int64
	Fee       int64
}

// DefaultShippingPolicy returns the storefront's standard shipping rule:
// free shipping at or above 2999 rupees, otherwise a flat 99 rupee fee.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{FreeAbove: 2999, Fee: 99}
}

// FeeFor returns the shipping charge for the given subtotal.
func (p ShippingPolicy) FeeFor(subtotal int64) int64 {
	if subtotal >= p.FreeAbove {
		return 0
	}
	return p.Fee
}

// Subtotal sums the line totals of the given items.
func Subtotal(items []OrderItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.Total
	}
	return sum
}

// DiscountFor computes the rupee discount a coupon yields on the given
// subtotal. Percentage values are whole percents truncated toward zero; the
// discount never exceeds the subtotal.
func (c Coupon) DiscountFor(subtotal int64) int64 {
	var discount int64
	switch c.Type {
	case CouponTypePercent:
		discount = subtotal * c.Value / 100
	case CouponTypeFlat:
		discount = c.Value
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// LoyaltyPoints converts an order total into reward points: one point per
// hundred rupees spent.
func LoyaltyPoints(total int64) int64 {
	if total <= 0 {
		return 0
	}
	return total / 100
}
