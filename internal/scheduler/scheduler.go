package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"Prizefight/internal/ledger"
	"Prizefight/internal/notifier"
	"Prizefight/internal/remote"

	"github.com/robfig/cron/v3"
)

// probeInterval is how often connectivity is re-checked. Mutations read
// the probe's last known answer, so the cadence bounds how stale that
// answer can be.
const probeInterval = 30 * time.Second

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Ledger   *ledger.Manager
	Probe    *remote.Probe
	Notifier notifier.Notifier
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, mgr *ledger.Manager, probe *remote.Probe, n notifier.Notifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Ledger:   mgr,
		Probe:    probe,
		Notifier: n,
		Ctx:      ctx,
	}
}

// RegisterAll registers the day-boundary, accrual, and report tasks.
func (s *Scheduler) RegisterAll(dayCron, accrualCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(dayCron, s.dayBoundaryTask); err != nil {
		return fmt.Errorf("register day boundary task: %w", err)
	}
	if _, err := s.Cron.AddFunc(accrualCron, s.accrualTask); err != nil {
		return fmt.Errorf("register accrual task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	if s.Probe != nil {
		spec := fmt.Sprintf("@every %s", probeInterval)
		if _, err := s.Cron.AddFunc(spec, func() {
			s.Probe.Check(s.Ctx)
		}); err != nil {
			return fmt.Errorf("register probe task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunAccrualNow forces an accrual attempt (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunAccrualNow() {
	if s.Ledger.RunAccrualNow(s.Ctx) {
		log.Println("[INFO] manual accrual applied")
	} else {
		log.Println("[INFO] manual accrual skipped: not eligible")
	}
}

// dayBoundaryTask re-runs the streak continuity check so a long-lived
// process observes calendar day transitions the same way a fresh
// session would.
func (s *Scheduler) dayBoundaryTask() {
	log.Println("[INFO] running day boundary task")
	s.Ledger.StartDay(s.Ctx)
}

func (s *Scheduler) accrualTask() {
	log.Println("[INFO] running scheduled accrual check")
	if !s.Ledger.RunScheduledAccrual(s.Ctx) {
		log.Println("[INFO] scheduled accrual skipped: not due or not eligible")
	}
}

// reportTask sends a periodic ledger status summary.
func (s *Scheduler) reportTask() {
	log.Println("[INFO] running report task")
	led := s.Ledger.Ledger()
	acct := s.Ledger.Investment()
	evt := notifier.NewEvent(notifier.KindReport, notifier.FormatLedgerStatus(&led, &acct), time.Now())
	s.trySend(evt)
}

func (s *Scheduler) trySend(evt notifier.Event) {
	if err := notifier.NotifyWithRetry(s.Ctx, s.Notifier, evt, 3); err != nil {
		log.Printf("[ERROR] send %s: %v", evt.Kind, err)
	}
}
