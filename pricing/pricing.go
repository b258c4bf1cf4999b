// Package pricing implements the GST-inclusive price split and discount
// codes shared by checkout and fulfillment.
package pricing

import "math"

// LeadDiscountCode is the coupon mailed to leads. 10% off.
const LeadDiscountCode = "SATVIK10"

// Split divides a tax-inclusive amount (minor currency units) into base and
// tax parts for the given GST percentage. base + tax always equals amount.
func Split(amount int64, gstPercent int) (base, tax int64) {
	if gstPercent <= 0 {
		return amount, 0
	}
	divisor := 1 + float64(gstPercent)/100
	base = int64(math.Round(float64(amount) / divisor))
	tax = amount - base
	return base, tax
}

// ApplyDiscount returns the amount after the given code and the discount
// taken, rounded to the nearest currency unit. Unknown codes are no-ops.
func ApplyDiscount(amount int64, code string) (discounted, discount int64) {
	switch code {
	case LeadDiscountCode:
		discount = int64(math.Round(float64(amount) * 0.10))
		return amount - discount, discount
	default:
		return amount, 0
	}
}
