package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency selects the recurring investment cadence.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is a known cadence.
func (f Frequency) Valid() bool {
	return f == FrequencyWeekly || f == FrequencyMonthly
}

// InvestmentRecord is one accrual applied to the simulated balance.
type InvestmentRecord struct {
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	PointsConverted int64           `json:"opcConverted"`
}

// InvestmentAccount holds the simulated recurring investment state.
// Balance is accrual-only: it never decreases, and no withdrawals are
// modeled. Connected flips to true only through an explicit bank
// connect operation.
type InvestmentAccount struct {
	Connected            bool               `json:"isConnected"`
	BankName             string             `json:"bankName"`
	AccountID            string             `json:"accountId"`
	Frequency            Frequency          `json:"frequency"`
	Enabled              bool               `json:"enabled"`
	Balance              decimal.Decimal    `json:"balance"`
	History              []InvestmentRecord `json:"investmentHistory"`
	NextScheduledDate    time.Time          `json:"nextScheduledDate"`
	LastInvestmentAmount decimal.Decimal    `json:"lastInvestmentAmount"`
	LastInvestmentDate   time.Time          `json:"lastInvestmentDate"`
}

// NewInvestmentAccount returns a disconnected account with defaults.
func NewInvestmentAccount() InvestmentAccount {
	return InvestmentAccount{
		Frequency:            FrequencyMonthly,
		Balance:              decimal.Zero,
		LastInvestmentAmount: decimal.Zero,
	}
}
