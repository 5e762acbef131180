package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"Prizefight/internal/model"
)

// PostgresStore implements Store against a Postgres database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and bootstraps the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	p := &PostgresStore{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("[INFO] postgres store opened")
	return p, nil
}

func (p *PostgresStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id        TEXT PRIMARY KEY,
			email          TEXT UNIQUE NOT NULL DEFAULT '',
			password_hash  TEXT NOT NULL DEFAULT '',
			total_opc      BIGINT NOT NULL DEFAULT 0,
			current_streak INT NOT NULL DEFAULT 0,
			saved_budget   NUMERIC NOT NULL DEFAULT 45,
			last_logged    TEXT NOT NULL DEFAULT '',
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(user_id),
			description TEXT NOT NULL,
			date        TEXT NOT NULL,
			opc_earned  BIGINT NOT NULL,
			ts          TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_ts ON activities(user_id, ts DESC)`,
		`CREATE TABLE IF NOT EXISTS investment_settings (
			user_id    TEXT PRIMARY KEY REFERENCES users(user_id),
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (p *PostgresStore) GetUser(ctx context.Context, userID string) (*UserRecord, error) {
	const query = `SELECT user_id, email, total_opc, current_streak, saved_budget, last_logged, updated_at
		FROM users WHERE user_id = $1`

	var rec UserRecord
	var budget string
	err := p.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID, &rec.Email, &rec.TotalOpc, &rec.CurrentStreak,
		&budget, &rec.LastLogged, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	rec.SavedBudget, err = decimal.NewFromString(budget)
	if err != nil {
		return nil, fmt.Errorf("parse saved_budget: %w", err)
	}
	return &rec, nil
}

func (p *PostgresStore) PutUser(ctx context.Context, rec *UserRecord) error {
	const query = `INSERT INTO users (user_id, email, total_opc, current_streak, saved_budget, last_logged, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE SET
			email          = EXCLUDED.email,
			total_opc      = EXCLUDED.total_opc,
			current_streak = EXCLUDED.current_streak,
			saved_budget   = EXCLUDED.saved_budget,
			last_logged    = EXCLUDED.last_logged,
			updated_at     = now()`

	_, err := p.db.ExecContext(ctx, query, rec.UserID, rec.Email,
		rec.TotalOpc, rec.CurrentStreak, rec.SavedBudget.String(), rec.LastLogged)
	return err
}

func (p *PostgresStore) UpdateStats(ctx context.Context, userID string, totalOpc int64, streak int, budget decimal.Decimal) error {
	const query = `UPDATE users SET total_opc = $2, current_streak = $3, saved_budget = $4, updated_at = now()
		WHERE user_id = $1`

	res, err := p.db.ExecContext(ctx, query, userID, totalOpc, streak, budget.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) UpdateLastLogged(ctx context.Context, userID, lastLogged string) error {
	const query = `UPDATE users SET last_logged = $2, updated_at = now() WHERE user_id = $1`

	res, err := p.db.ExecContext(ctx, query, userID, lastLogged)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) AddActivity(ctx context.Context, userID string, act Activity) error {
	const query = `INSERT INTO activities (id, user_id, description, date, opc_earned, ts)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := p.db.ExecContext(ctx, query, act.ID, userID, act.Description, act.Date, act.OpcEarned, act.Timestamp)
	return err
}

func (p *PostgresStore) RecentActivities(ctx context.Context, userID string, limit int) ([]Activity, error) {
	const query = `SELECT id, description, date, opc_earned, ts FROM activities
		WHERE user_id = $1 ORDER BY ts DESC LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activities: %w", err)
	}
	defer rows.Close()

	var acts []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.Description, &a.Date, &a.OpcEarned, &a.Timestamp); err != nil {
			return nil, err
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}

func (p *PostgresStore) GetInvestment(ctx context.Context, userID string) (*model.InvestmentAccount, error) {
	const query = `SELECT payload FROM investment_settings WHERE user_id = $1`

	var payload []byte
	err := p.db.QueryRowContext(ctx, query, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get investment: %w", err)
	}
	var acct model.InvestmentAccount
	if err := json.Unmarshal(payload, &acct); err != nil {
		return nil, fmt.Errorf("parse investment payload: %w", err)
	}
	return &acct, nil
}

func (p *PostgresStore) PutInvestment(ctx context.Context, userID string, acct *model.InvestmentAccount) error {
	payload, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("marshal investment payload: %w", err)
	}

	const query = `INSERT INTO investment_settings (user_id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

	_, err = p.db.ExecContext(ctx, query, userID, payload)
	return err
}

func (p *PostgresStore) CreateCredentials(ctx context.Context, creds Credentials) error {
	const query = `SELECT 1 FROM users WHERE email = $1 LIMIT 1`

	var exists int
	err := p.db.QueryRowContext(ctx, query, creds.Email).Scan(&exists)
	if err == nil {
		return ErrEmailInUse
	}
	if err != sql.ErrNoRows {
		return err
	}

	const insert = `INSERT INTO users (user_id, email, password_hash) VALUES ($1, $2, $3)`
	_, err = p.db.ExecContext(ctx, insert, creds.UserID, creds.Email, creds.PasswordHash)
	return err
}

func (p *PostgresStore) GetCredentials(ctx context.Context, email string) (*Credentials, error) {
	const query = `SELECT user_id, email, password_hash FROM users WHERE email = $1`

	var creds Credentials
	err := p.db.QueryRowContext(ctx, query, email).Scan(&creds.UserID, &creds.Email, &creds.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &creds, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) Close() error {
	log.Println("[INFO] closing postgres store")
	return p.db.Close()
}

var _ Store = (*PostgresStore)(nil)
