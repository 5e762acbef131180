// Package points holds the shared OPC earning rule: every half dollar
// kept earns one point.
package points

import "github.com/shopspring/decimal"

var halfDollar = decimal.NewFromFloat(0.5)

// Earned converts a positive dollar difference into whole points.
// Non-positive differences earn nothing.
func Earned(dollarDifference decimal.Decimal) int64 {
	if dollarDifference.Sign() <= 0 {
		return 0
	}
	return dollarDifference.Div(halfDollar).Floor().IntPart()
}

// FromBudget scores a daily budget submission. The difference is
// budget minus actual spend; a non-positive difference is over budget.
func FromBudget(budget, actualSpend decimal.Decimal) (earned int64, underBudget bool) {
	diff := budget.Sub(actualSpend)
	return Earned(diff), diff.Sign() > 0
}
