// Package invest converts accumulated OPC points into simulated
// investment accruals at the fixed rate of 100 points per 25 dollars.
package invest

import (
	"time"

	"github.com/shopspring/decimal"

	"Prizefight/internal/model"
	"Prizefight/internal/streak"
)

// ConversionThreshold is the minimum lifetime point total before any
// accrual takes place.
const ConversionThreshold = 100

// amountPerBlock is the dollar value of each full 100-point block.
var amountPerBlock = decimal.NewFromInt(25)

// Result describes one applied accrual.
type Result struct {
	Amount           decimal.Decimal
	PointsConverted  int64
	PreviousBalance  decimal.Decimal
	NewBalance       decimal.Decimal
	Date             time.Time
	NextScheduled    time.Time
}

// Eligible reports whether an accrual may run for the given total.
func Eligible(totalPoints int64, acct *model.InvestmentAccount) bool {
	return totalPoints >= ConversionThreshold && acct.Connected && acct.Enabled
}

// Process applies an accrual to acct and returns what happened, or nil
// when the account is not eligible.
//
// The amount is deliberately recomputed from the lifetime point total,
// and the total is never decremented after conversion: invoking
// Process twice at the same total appends a second history entry and
// credits the balance again. Callers gate invocation frequency; the
// conversion itself preserves this behavior.
func Process(acct *model.InvestmentAccount, totalPoints int64, now time.Time) *Result {
	if !Eligible(totalPoints, acct) {
		return nil
	}

	blocks := totalPoints / ConversionThreshold
	amount := amountPerBlock.Mul(decimal.NewFromInt(blocks))
	converted := blocks * ConversionThreshold

	prev := acct.Balance
	acct.Balance = acct.Balance.Add(amount)
	acct.History = append(acct.History, model.InvestmentRecord{
		Amount:          amount,
		Date:            now,
		PointsConverted: converted,
	})
	acct.LastInvestmentAmount = amount
	acct.LastInvestmentDate = now
	acct.NextScheduledDate = NextScheduledDate(acct.Frequency, now)

	return &Result{
		Amount:          amount,
		PointsConverted: converted,
		PreviousBalance: prev,
		NewBalance:      acct.Balance,
		Date:            now,
		NextScheduled:   acct.NextScheduledDate,
	}
}

// NextScheduledDate computes the next run: the coming Monday for
// weekly accounts (today counts when now is a Monday), or the first
// day of the next month otherwise.
func NextScheduledDate(freq model.Frequency, now time.Time) time.Time {
	if freq == model.FrequencyWeekly {
		offset := (8 - int(now.Weekday())) % 7
		return streak.Midnight(now).AddDate(0, 0, offset)
	}
	y, m, _ := now.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location())
}

// Projection estimates the 5-year compound value of the current point
// total converted at the fixed rate, using 6% annual growth.
func Projection(totalPoints int64) (current, future decimal.Decimal) {
	current = decimal.NewFromInt(totalPoints).Div(decimal.NewFromInt(ConversionThreshold)).Mul(amountPerBlock)
	rate := decimal.NewFromFloat(1.06)
	future = current
	for i := 0; i < 5; i++ {
		future = future.Mul(rate)
	}
	return current, future.Round(2)
}
