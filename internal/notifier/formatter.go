package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"Prizefight/internal/invest"
	"Prizefight/internal/milestone"
	"Prizefight/internal/model"
)

// FormatMilestone builds the celebration message for a threshold
// crossing.
func FormatMilestone(totalPoints int64, currentStreak int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Milestone reached! | %s\n\n", time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Total OPC: %s\n", humanize.Comma(totalPoints)))
	b.WriteString(fmt.Sprintf("Current streak: %d days\n", currentStreak))
	b.WriteString(fmt.Sprintf("Tier: %s\n\n", milestone.Tier(totalPoints, currentStreak)))
	b.WriteString(milestone.StreakMessage(currentStreak))

	return b.String()
}

// FormatAccrual builds the report for one applied investment accrual.
func FormatAccrual(res *invest.Result) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Investment accrual | %s\n\n", res.Date.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Converted: %s OPC\n", humanize.Comma(res.PointsConverted)))
	b.WriteString(fmt.Sprintf("Invested: $%s\n", res.Amount.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Balance: $%s -> $%s\n", res.PreviousBalance.StringFixed(2), res.NewBalance.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Next run: %s\n", res.NextScheduled.Format("2006-01-02")))

	return b.String()
}

// FormatLedgerStatus formats the current ledger state for display.
func FormatLedgerStatus(ledger *model.UserLedger, acct *model.InvestmentAccount) string {
	var b strings.Builder

	b.WriteString("Ledger status\n\n")
	b.WriteString(fmt.Sprintf("Total OPC: %s\n", humanize.Comma(ledger.TotalPoints)))
	current, future := invest.Projection(ledger.TotalPoints)
	b.WriteString(fmt.Sprintf("Equivalent value: $%s\n", current.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Projected in 5 years: $%s\n", future.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Streak: %d days\n", ledger.CurrentStreak))
	b.WriteString(fmt.Sprintf("Daily budget: $%s\n", ledger.SavedBudget.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Tier: %s\n", milestone.Tier(ledger.TotalPoints, ledger.CurrentStreak)))

	if acct != nil && acct.Connected {
		b.WriteString(fmt.Sprintf("\nBank: %s\n", acct.BankName))
		b.WriteString(fmt.Sprintf("Invested balance: $%s\n", acct.Balance.StringFixed(2)))
		if !acct.NextScheduledDate.IsZero() {
			b.WriteString(fmt.Sprintf("Next accrual: %s\n", acct.NextScheduledDate.Format("2006-01-02")))
		}
	}

	return b.String()
}
