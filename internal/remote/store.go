// Package remote is the durable per-user record store and the safe-call
// error boundary in front of it. The store is reachable only when the
// session is online and authenticated; everything above it treats remote
// failures as fallback values, never as errors.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"Prizefight/internal/model"
)

// ErrNotFound indicates no record exists for the user. Callers treat
// it as first-run and initialize, never as a surfaced error.
var ErrNotFound = errors.New("record not found")

// ErrEmailInUse indicates a sign-up collision on an existing email.
var ErrEmailInUse = errors.New("email already in use")

// UserRecord is the per-user durable ledger document.
type UserRecord struct {
	UserID        string
	Email         string
	TotalOpc      int64
	CurrentStreak int
	SavedBudget   decimal.Decimal
	LastLogged    string // ISO 8601, empty when never logged
	UpdatedAt     time.Time
}

// Activity is one entry in the user's activities sub-collection.
type Activity struct {
	ID          string
	Description string
	Date        string // display-formatted
	OpcEarned   int64
	Timestamp   time.Time
}

// Credentials is the opaque auth record attached to a user.
type Credentials struct {
	UserID       string
	Email        string
	PasswordHash string
}

// Store is the remote persistence contract. Writes are per-field and
// non-transactional: a mutation touching the ledger stats and an
// activity entry issues two independent calls, and partial failure is
// possible and not rolled back.
type Store interface {
	GetUser(ctx context.Context, userID string) (*UserRecord, error)
	PutUser(ctx context.Context, rec *UserRecord) error
	UpdateStats(ctx context.Context, userID string, totalOpc int64, streak int, budget decimal.Decimal) error
	UpdateLastLogged(ctx context.Context, userID, lastLogged string) error

	AddActivity(ctx context.Context, userID string, act Activity) error
	RecentActivities(ctx context.Context, userID string, limit int) ([]Activity, error)

	GetInvestment(ctx context.Context, userID string) (*model.InvestmentAccount, error)
	PutInvestment(ctx context.Context, userID string, acct *model.InvestmentAccount) error

	CreateCredentials(ctx context.Context, creds Credentials) error
	GetCredentials(ctx context.Context, email string) (*Credentials, error)

	Ping(ctx context.Context) error
	Close() error
}
