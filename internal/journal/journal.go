// Package journal keeps a local durable record of engine activity for
// later analysis: earns, streak changes, accruals, milestones, and the
// outcome of each remote sync attempt.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarnEvent records one point-earning mutation.
type EarnEvent struct {
	ActivityID   string
	Description  string
	PointsEarned int64
	TotalAfter   int64
}

// StreakEvent records a streak change and its cause.
type StreakEvent struct {
	Cause  string // "UNDER_BUDGET", "OVER_BUDGET", "CONTINUITY_BREAK"
	Before int
	After  int
}

// AccrualEvent records one investment accrual run.
type AccrualEvent struct {
	Amount          decimal.Decimal
	PointsConverted int64
	BalanceAfter    decimal.Decimal
	NextScheduled   time.Time
}

// MilestoneEvent records a threshold crossing.
type MilestoneEvent struct {
	TotalAfter  int64
	StreakAfter int
	Tier        string
}

// SyncEvent records whether a remote write settled or fell back.
type SyncEvent struct {
	Op      string
	Settled bool
}

// Journal persists engine history. Implementations must be safe for
// concurrent use.
type Journal interface {
	RecordEarn(evt *EarnEvent) error
	RecordStreak(evt *StreakEvent) error
	RecordAccrual(evt *AccrualEvent) error
	RecordMilestone(evt *MilestoneEvent) error
	RecordSync(evt *SyncEvent) error
	Close() error
}

// NoopJournal is used when no journal database is configured.
type NoopJournal struct{}

func NewNoopJournal() *NoopJournal { return &NoopJournal{} }

func (n *NoopJournal) RecordEarn(_ *EarnEvent) error           { return nil }
func (n *NoopJournal) RecordStreak(_ *StreakEvent) error       { return nil }
func (n *NoopJournal) RecordAccrual(_ *AccrualEvent) error     { return nil }
func (n *NoopJournal) RecordMilestone(_ *MilestoneEvent) error { return nil }
func (n *NoopJournal) RecordSync(_ *SyncEvent) error           { return nil }
func (n *NoopJournal) Close() error                            { return nil }
