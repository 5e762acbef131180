// Package ledger is the synchronization orchestrator. Every mutation
// is applied optimistically to in-memory state, written to the local
// cache unconditionally, and replicated to the remote store on a
// best-effort basis when the session is authenticated and online.
// Local state is authoritative for the caller; remote failures are
// never rolled back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"Prizefight/internal/cache"
	"Prizefight/internal/events"
	"Prizefight/internal/invest"
	"Prizefight/internal/journal"
	"Prizefight/internal/milestone"
	"Prizefight/internal/model"
	"Prizefight/internal/notifier"
	"Prizefight/internal/points"
	"Prizefight/internal/remote"
	"Prizefight/internal/streak"
)

// Session carries the externally owned inputs: the opaque user id from
// the authentication collaborator and the connectivity flag from the
// platform probe. The engine never owns their lifecycle.
type Session struct {
	UserID string
	Online func() bool
}

// Authenticated reports whether the session has a signed-in user.
func (s Session) Authenticated() bool { return s.UserID != "" }

func (s Session) online() bool { return s.Online != nil && s.Online() }

// Deps are the collaborators threaded through the orchestrator.
// Journal, Notifier, and Events default to no-ops when nil.
type Deps struct {
	Cache    *cache.Cache
	Store    remote.Store
	Journal  journal.Journal
	Notifier notifier.Notifier
	Events   events.Publisher
	Now      func() time.Time
}

// Manager coordinates all ledger and investment mutations for a single
// active session.
type Manager struct {
	mu      sync.Mutex
	session Session
	ledger  model.UserLedger
	invest  model.InvestmentAccount

	cache    *cache.Cache
	store    remote.Store
	journal  journal.Journal
	notifier notifier.Notifier
	events   events.Publisher
	now      func() time.Time
}

// NewManager creates a Manager seeded from the local cache. Call
// StartSession to pull remote state and run the continuity check.
func NewManager(session Session, deps Deps) *Manager {
	if deps.Journal == nil {
		deps.Journal = journal.NewNoopJournal()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifier.NewLogNotifier()
	}
	if deps.Events == nil {
		deps.Events = events.NewNoopPublisher()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		session:  session,
		ledger:   deps.Cache.LoadLedger(),
		invest:   deps.Cache.LoadInvestment(),
		cache:    deps.Cache,
		store:    deps.Store,
		journal:  deps.Journal,
		notifier: deps.Notifier,
		events:   deps.Events,
		now:      deps.Now,
	}
}

// Ledger returns a copy of the current ledger state.
func (m *Manager) Ledger() model.UserLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.ledger
	cp.Activity = append([]model.ActivityRecord(nil), m.ledger.Activity...)
	return cp
}

// Investment returns a copy of the current investment account.
func (m *Manager) Investment() model.InvestmentAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.invest
	cp.History = append([]model.InvestmentRecord(nil), m.invest.History...)
	return cp
}

// StartSession loads authoritative state and runs the streak
// continuity check exactly once. When online and authenticated the
// remote record wins; a missing remote record is treated as first-run
// and initialized from the cached local state.
func (m *Manager) StartSession(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Authenticated() && m.session.online() {
		m.loadRemote(ctx)
	}
	m.evaluateContinuity(ctx)
}

// userLoad distinguishes a genuine first-run (notFound) from a read
// that failed in transit, where rec is nil but the remote record may
// still exist and must not be overwritten.
type userLoad struct {
	rec      *remote.UserRecord
	notFound bool
}

func (m *Manager) loadRemote(ctx context.Context) {
	load := remote.Safe("getUser", func() (userLoad, error) {
		rec, err := m.store.GetUser(ctx, m.session.UserID)
		if errors.Is(err, remote.ErrNotFound) {
			return userLoad{notFound: true}, nil
		}
		return userLoad{rec: rec}, err
	}, userLoad{})

	if rec := load.rec; rec != nil {
		m.ledger.TotalPoints = rec.TotalOpc
		m.ledger.CurrentStreak = rec.CurrentStreak
		if rec.SavedBudget.Sign() > 0 {
			m.ledger.SavedBudget = rec.SavedBudget
		}
		m.ledger.LastLoggedDate = parseLastLogged(rec.LastLogged)

		acts := remote.Safe("recentActivities", func() ([]remote.Activity, error) {
			return m.store.RecentActivities(ctx, m.session.UserID, model.MaxActivityItems)
		}, nil)
		if len(acts) > 0 {
			m.ledger.Activity = make([]model.ActivityRecord, len(acts))
			for i, a := range acts {
				m.ledger.Activity[i] = model.ActivityRecord{
					ID:           a.ID,
					Description:  a.Description,
					Date:         a.Date,
					PointsEarned: a.OpcEarned,
				}
			}
		}
		log.Printf("[INFO] session state loaded from remote store for user %s", m.session.UserID)
	} else if load.notFound {
		// First run for this user: initialize the remote record from
		// whatever the local cache already holds. Only a genuine
		// not-found gets here; a failed read keeps the remote record
		// intact and falls back to the cache.
		remote.SafeOK("initUser", func() error {
			return m.store.PutUser(ctx, &remote.UserRecord{
				UserID:        m.session.UserID,
				TotalOpc:      m.ledger.TotalPoints,
				CurrentStreak: m.ledger.CurrentStreak,
				SavedBudget:   m.ledger.SavedBudget,
				LastLogged:    formatLastLogged(m.ledger.LastLoggedDate),
			})
		})
		log.Printf("[INFO] no remote record for user %s, initialized from local cache", m.session.UserID)
	} else {
		log.Printf("[INFO] remote read failed for user %s, continuing from local cache", m.session.UserID)
	}

	acct := remote.Safe("getInvestment", func() (*model.InvestmentAccount, error) {
		acct, err := m.store.GetInvestment(ctx, m.session.UserID)
		if errors.Is(err, remote.ErrNotFound) {
			return nil, nil
		}
		return acct, err
	}, nil)
	if acct != nil {
		m.invest = *acct
	}
}

// evaluateContinuity runs the streak continuity evaluator and advances
// the last-logged date to today. Caller holds the lock.
func (m *Manager) evaluateContinuity(ctx context.Context) {
	today := m.now()
	before := m.ledger.CurrentStreak
	after := streak.Continue(m.ledger.LastLoggedDate, before, today)

	if after != before {
		log.Printf("[INFO] streak continuity broken: %d -> %d", before, after)
		m.ledger.CurrentStreak = after
		m.recordJournal(m.journal.RecordStreak(&journal.StreakEvent{
			Cause: "CONTINUITY_BREAK", Before: before, After: after,
		}))
	}
	m.ledger.LastLoggedDate = streak.Midnight(today)

	m.saveLedgerCache()
	if m.session.Authenticated() && m.session.online() {
		ok := remote.SafeOK("updateLastLogged", func() error {
			return m.store.UpdateLastLogged(ctx, m.session.UserID, formatLastLogged(m.ledger.LastLoggedDate))
		})
		m.recordJournal(m.journal.RecordSync(&journal.SyncEvent{Op: "updateLastLogged", Settled: ok}))
		if after != before {
			m.syncStats(ctx)
		}
	}
}

// EarnPoints applies one earn event: optimistic in-memory add, local
// cache write, best-effort remote replication as two independent
// writes, then milestone and accrual side effects.
func (m *Manager) EarnPoints(ctx context.Context, amount int64, description string) error {
	if amount <= 0 {
		return fmt.Errorf("points earned must be positive, got %d", amount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	prevTotal := m.ledger.TotalPoints
	m.ledger.TotalPoints += amount

	act := model.ActivityRecord{
		ID:           uuid.New().String(),
		Description:  description,
		Date:         now.Format(model.ActivityDateFormat),
		PointsEarned: amount,
	}
	m.ledger.Activity = append([]model.ActivityRecord{act}, m.ledger.Activity...)
	if len(m.ledger.Activity) > model.MaxActivityItems {
		m.ledger.Activity = m.ledger.Activity[:model.MaxActivityItems]
	}

	m.saveLedgerCache()

	if m.session.Authenticated() && m.session.online() {
		// Two independent remote writes; partial failure is possible
		// and is not rolled back or retried.
		m.syncStats(ctx)
		ok := remote.SafeOK("addActivity", func() error {
			return m.store.AddActivity(ctx, m.session.UserID, remote.Activity{
				ID:          act.ID,
				Description: act.Description,
				Date:        act.Date,
				OpcEarned:   act.PointsEarned,
				Timestamp:   now,
			})
		})
		m.recordJournal(m.journal.RecordSync(&journal.SyncEvent{Op: "addActivity", Settled: ok}))
	}

	m.recordJournal(m.journal.RecordEarn(&journal.EarnEvent{
		ActivityID:   act.ID,
		Description:  act.Description,
		PointsEarned: amount,
		TotalAfter:   m.ledger.TotalPoints,
	}))

	m.settle("earnPoints", prevTotal, m.ledger.TotalPoints, m.ledger.CurrentStreak, m.ledger.CurrentStreak, now)

	// Accrue when this earn completed a new 100-point block.
	if prevTotal/invest.ConversionThreshold < m.ledger.TotalPoints/invest.ConversionThreshold {
		m.applyAccrual(ctx, now)
	}
	return nil
}

// UpdateStreak applies a budget-day outcome: increment by one when
// under budget, reset to zero otherwise.
func (m *Manager) UpdateStreak(ctx context.Context, isUnderBudget bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.ledger.CurrentStreak
	cause := "UNDER_BUDGET"
	if isUnderBudget {
		m.ledger.CurrentStreak++
	} else {
		m.ledger.CurrentStreak = 0
		cause = "OVER_BUDGET"
	}

	m.saveLedgerCache()
	if m.session.Authenticated() && m.session.online() {
		m.syncStats(ctx)
	}

	m.recordJournal(m.journal.RecordStreak(&journal.StreakEvent{
		Cause: cause, Before: before, After: m.ledger.CurrentStreak,
	}))
	m.settle("updateStreak", m.ledger.TotalPoints, m.ledger.TotalPoints, before, m.ledger.CurrentStreak, m.now())
}

// UpdateBudget stores a new daily budget. The value must be positive.
func (m *Manager) UpdateBudget(ctx context.Context, value decimal.Decimal) error {
	if value.Sign() <= 0 {
		return fmt.Errorf("budget must be positive, got %s", value)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ledger.SavedBudget = value
	m.saveLedgerCache()
	if m.session.Authenticated() && m.session.online() {
		m.syncStats(ctx)
	}
	return nil
}

// SubmitBudgetDay scores a daily budget submission: the streak updates
// first, then an under-budget difference earns points.
func (m *Manager) SubmitBudgetDay(ctx context.Context, budget, actualSpend decimal.Decimal) (earned int64, underBudget bool, err error) {
	if err := m.UpdateBudget(ctx, budget); err != nil {
		return 0, false, err
	}

	earned, underBudget = points.FromBudget(budget, actualSpend)
	m.UpdateStreak(ctx, underBudget)

	if underBudget && earned > 0 {
		diff := budget.Sub(actualSpend)
		desc := fmt.Sprintf("Under budget ($%s)", diff.StringFixed(2))
		if err := m.EarnPoints(ctx, earned, desc); err != nil {
			return 0, underBudget, err
		}
	}
	return earned, underBudget, nil
}

// LogSkippedPurchase earns points for a purchase the user talked
// themselves out of.
func (m *Manager) LogSkippedPurchase(ctx context.Context, amount decimal.Decimal) (int64, error) {
	earned := points.Earned(amount)
	if earned == 0 {
		return 0, nil
	}
	desc := fmt.Sprintf("Skipped purchase ($%s)", amount.StringFixed(2))
	if err := m.EarnPoints(ctx, earned, desc); err != nil {
		return 0, err
	}
	return earned, nil
}

// ConnectBank marks the investment account as connected.
func (m *Manager) ConnectBank(ctx context.Context, bankName, accountID string) error {
	if bankName == "" || accountID == "" {
		return fmt.Errorf("bank name and account id are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.invest.Connected = true
	m.invest.BankName = bankName
	m.invest.AccountID = accountID

	m.saveInvestmentCache()
	m.syncInvestment(ctx)
	log.Printf("[INFO] bank connected: %s", bankName)
	return nil
}

// UpdateInvestmentSettings changes the accrual cadence and toggle, and
// recomputes the next scheduled run.
func (m *Manager) UpdateInvestmentSettings(ctx context.Context, freq model.Frequency, enabled bool) error {
	if !freq.Valid() {
		return fmt.Errorf("unknown frequency %q", freq)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.invest.Frequency = freq
	m.invest.Enabled = enabled
	m.invest.NextScheduledDate = invest.NextScheduledDate(freq, m.now())

	m.saveInvestmentCache()
	m.syncInvestment(ctx)
	return nil
}

// RunScheduledAccrual applies an accrual when the schedule is due.
// Reports whether one ran.
func (m *Manager) RunScheduledAccrual(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.invest.NextScheduledDate.IsZero() || m.invest.NextScheduledDate.After(now) {
		return false
	}
	return m.applyAccrual(ctx, now)
}

// RunAccrualNow forces an accrual attempt, schedule aside.
func (m *Manager) RunAccrualNow(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyAccrual(ctx, m.now())
}

// StartDay re-runs the continuity evaluator at a calendar day
// boundary. The cron scheduler calls this daily so a long-lived
// process observes the same day transitions a fresh session would.
func (m *Manager) StartDay(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluateContinuity(ctx)
}

// applyAccrual converts accumulated points into the simulated balance.
// Caller holds the lock. The amount is recomputed from the lifetime
// total each run; see invest.Process.
func (m *Manager) applyAccrual(ctx context.Context, now time.Time) bool {
	res := invest.Process(&m.invest, m.ledger.TotalPoints, now)
	if res == nil {
		return false
	}

	m.saveInvestmentCache()
	m.syncInvestment(ctx)

	m.recordJournal(m.journal.RecordAccrual(&journal.AccrualEvent{
		Amount:          res.Amount,
		PointsConverted: res.PointsConverted,
		BalanceAfter:    res.NewBalance,
		NextScheduled:   res.NextScheduled,
	}))
	m.dispatch(notifier.NewEvent(notifier.KindAccrual, notifier.FormatAccrual(res), now))
	log.Printf("[INFO] accrual applied: $%s from %d points", res.Amount.StringFixed(2), res.PointsConverted)
	return true
}

// settle runs the once-per-mutation side effects: milestone detection
// and the settled-mutation event. Caller holds the lock.
func (m *Manager) settle(op string, prevTotal, newTotal int64, prevStreak, newStreak int, now time.Time) {
	if milestone.Crossed(prevTotal, newTotal, prevStreak, newStreak) {
		m.recordJournal(m.journal.RecordMilestone(&journal.MilestoneEvent{
			TotalAfter:  newTotal,
			StreakAfter: newStreak,
			Tier:        milestone.Tier(newTotal, newStreak),
		}))
		m.dispatch(notifier.NewEvent(notifier.KindMilestone, notifier.FormatMilestone(newTotal, newStreak), now))
	}

	// Publishing can block for the transport timeout; keep it off the
	// mutation path.
	evt := events.MutationSettled{
		Op:            op,
		UserID:        m.session.UserID,
		TotalOpc:      newTotal,
		CurrentStreak: newStreak,
		OccurredAt:    now,
	}
	go func() {
		if err := m.events.Publish(events.Topic, evt); err != nil {
			log.Printf("[WARN] publish %s event: %v", op, err)
		}
	}()
}

// syncStats replicates the ledger stats to the remote store. Caller
// holds the lock and has already checked the session.
func (m *Manager) syncStats(ctx context.Context) {
	ok := remote.SafeOK("updateStats", func() error {
		return m.store.UpdateStats(ctx, m.session.UserID,
			m.ledger.TotalPoints, m.ledger.CurrentStreak, m.ledger.SavedBudget)
	})
	m.recordJournal(m.journal.RecordSync(&journal.SyncEvent{Op: "updateStats", Settled: ok}))
}

// syncInvestment replicates the investment record when the session
// allows it. Caller holds the lock.
func (m *Manager) syncInvestment(ctx context.Context) {
	if !m.session.Authenticated() || !m.session.online() {
		return
	}
	acct := m.invest
	ok := remote.SafeOK("putInvestment", func() error {
		return m.store.PutInvestment(ctx, m.session.UserID, &acct)
	})
	m.recordJournal(m.journal.RecordSync(&journal.SyncEvent{Op: "putInvestment", Settled: ok}))
}

func (m *Manager) saveLedgerCache() {
	if err := m.cache.SaveLedger(m.ledger); err != nil {
		log.Printf("[ERROR] save ledger cache: %v", err)
	}
}

func (m *Manager) saveInvestmentCache() {
	if err := m.cache.SaveInvestment(m.invest); err != nil {
		log.Printf("[ERROR] save investment cache: %v", err)
	}
}

// dispatch sends a notification without blocking the mutation path.
func (m *Manager) dispatch(evt notifier.Event) {
	go func() {
		if err := m.notifier.Notify(context.Background(), evt); err != nil {
			log.Printf("[WARN] notify %s: %v", evt.Kind, err)
		}
	}()
}

func (m *Manager) recordJournal(err error) {
	if err != nil {
		log.Printf("[ERROR] journal write: %v", err)
	}
}

func parseLastLogged(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		log.Printf("[WARN] parse last logged date %q: %v", s, err)
		return time.Time{}
	}
	return t
}

func formatLastLogged(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
