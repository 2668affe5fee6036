// Package money does currency arithmetic on two-decimal amounts.
package money

import "github.com/shopspring/decimal"

// TaxRate is the flat sales tax applied to every order.
var TaxRate = decimal.RequireFromString("0.08")

// Round rounds an amount to cents, half away from zero.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// LineTotal returns unit price times quantity, rounded to cents.
func LineTotal(price float64, quantity int) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// Sum adds amounts without accumulating float error.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Totals holds the computed amounts of an order.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// Line is one priced quantity.
type Line struct {
	Price    float64
	Quantity int
}

// Compute returns subtotal, tax at TaxRate and total for the given lines.
func Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(TaxRate).Round(2)
	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    subtotal.Add(tax).InexactFloat64(),
	}
}

// Divide returns a / b rounded to cents, or zero when b is zero.
func Divide(a float64, b int) float64 {
	if b == 0 {
		return 0
	}
	return decimal.NewFromFloat(a).Div(decimal.NewFromInt(int64(b))).Round(2).InexactFloat64()
}
