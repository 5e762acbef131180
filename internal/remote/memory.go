package remote

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"Prizefight/internal/model"
)

// MemoryStore is an in-process Store used for tests and for running
// without a configured database. FailAll makes every call error,
// simulating an unreachable remote.
type MemoryStore struct {
	mu          sync.Mutex
	users       map[string]*UserRecord
	activities  map[string][]Activity
	investments map[string]*model.InvestmentAccount
	credentials map[string]*Credentials // keyed by email

	FailAll bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*UserRecord),
		activities:  make(map[string][]Activity),
		investments: make(map[string]*model.InvestmentAccount),
		credentials: make(map[string]*Credentials),
	}
}

var errUnavailable = errors.New("remote store unavailable")

func (m *MemoryStore) check() error {
	if m.FailAll {
		return errUnavailable
	}
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	rec, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) PutUser(_ context.Context, rec *UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	cp := *rec
	cp.UpdatedAt = time.Now()
	m.users[rec.UserID] = &cp
	return nil
}

func (m *MemoryStore) UpdateStats(_ context.Context, userID string, totalOpc int64, streak int, budget decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	rec, ok := m.users[userID]
	if !ok {
		rec = &UserRecord{UserID: userID}
		m.users[userID] = rec
	}
	rec.TotalOpc = totalOpc
	rec.CurrentStreak = streak
	rec.SavedBudget = budget
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) UpdateLastLogged(_ context.Context, userID, lastLogged string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	rec, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	rec.LastLogged = lastLogged
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) AddActivity(_ context.Context, userID string, act Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.activities[userID] = append(m.activities[userID], act)
	return nil
}

func (m *MemoryStore) RecentActivities(_ context.Context, userID string, limit int) ([]Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	acts := append([]Activity(nil), m.activities[userID]...)
	sort.Slice(acts, func(i, j int) bool { return acts[i].Timestamp.After(acts[j].Timestamp) })
	if limit > 0 && len(acts) > limit {
		acts = acts[:limit]
	}
	return acts, nil
}

func (m *MemoryStore) GetInvestment(_ context.Context, userID string) (*model.InvestmentAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	acct, ok := m.investments[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acct
	cp.History = append([]model.InvestmentRecord(nil), acct.History...)
	return &cp, nil
}

func (m *MemoryStore) PutInvestment(_ context.Context, userID string, acct *model.InvestmentAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	cp := *acct
	cp.History = append([]model.InvestmentRecord(nil), acct.History...)
	m.investments[userID] = &cp
	return nil
}

func (m *MemoryStore) CreateCredentials(_ context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, exists := m.credentials[creds.Email]; exists {
		return ErrEmailInUse
	}
	cp := creds
	m.credentials[creds.Email] = &cp
	return nil
}

func (m *MemoryStore) GetCredentials(_ context.Context, email string) (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	creds, ok := m.credentials[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *creds
	return &cp, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check()
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
