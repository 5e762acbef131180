package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBudget is the daily budget assigned to a brand-new ledger.
var DefaultBudget = decimal.NewFromInt(45)

// ActivityDateFormat is the display format for activity entries.
const ActivityDateFormat = "Jan 2, 2006"

// MaxActivityItems caps the visible activity history. Trimming affects
// only what is displayed and cached, never TotalPoints.
const MaxActivityItems = 10

// ActivityRecord is a single earn event in the visible history.
type ActivityRecord struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	Date         string `json:"date"`
	PointsEarned int64  `json:"opcEarned"`
}

// UserLedger tracks a user's reward points, streak, and budget.
// TotalPoints only ever increases; CurrentStreak resets to 0 on any
// over-budget submission.
type UserLedger struct {
	TotalPoints    int64            `json:"totalOpc"`
	CurrentStreak  int              `json:"currentStreak"`
	SavedBudget    decimal.Decimal  `json:"savedBudget"`
	LastLoggedDate time.Time        `json:"lastLoggedDate"`
	Activity       []ActivityRecord `json:"activityItems"`
}

// NewUserLedger returns a ledger with first-run defaults.
func NewUserLedger() UserLedger {
	return UserLedger{SavedBudget: DefaultBudget}
}
