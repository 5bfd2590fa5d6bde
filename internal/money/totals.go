// Package money holds the pure monetary calculations shared by the billing
// and purchase ledgers. Amounts use fixed-point decimals so that a client
// computing a live preview and the server persisting the authoritative record
// agree exactly, which float arithmetic cannot guarantee.
package money

import "github.com/shopspring/decimal"

// Line is one quantity/price pair entering a totals calculation.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Totals is the result of a totals calculation. All derived fields are
// rounded half-up to 2 decimal places.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// LineAmount returns quantity x unit price for a single line, rounded to 2dp.
func LineAmount(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// Compute derives subtotal, discount, tax and total from line items and two
// percentage adjustments:
//
//	discountAmount = subtotal * discount%/100
//	taxAmount      = (subtotal - discountAmount) * tax%/100
//	totalAmount    = (subtotal - discountAmount) + taxAmount
//
// The result is invariant to line ordering. Percentages are expected to be
// validated to [0,100] upstream; Compute itself takes them as given.
func Compute(lines []Line, discountPercent, taxPercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Quantity.Mul(line.UnitPrice))
	}
	subtotal = subtotal.Round(2)

	discountAmount := subtotal.Mul(discountPercent).Div(hundred).Round(2)
	afterDiscount := subtotal.Sub(discountAmount)
	taxAmount := afterDiscount.Mul(taxPercent).Div(hundred).Round(2)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		TotalAmount:    afterDiscount.Add(taxAmount),
	}
}
