package journal

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteJournal persists engine history to a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteJournal opens (or creates) the database and runs migrations.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so reporting tools can read while the engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite journal opened: %s", dbPath)
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS earn_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			activity_id TEXT,
			description TEXT,
			points      INTEGER,
			total_after INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_earn_ts ON earn_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS streak_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			cause     TEXT,
			before    INTEGER,
			after     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_streak_ts ON streak_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS accrual_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			amount        TEXT,
			points        INTEGER,
			balance_after TEXT,
			next_run      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accrual_ts ON accrual_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS milestone_events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			total_after  INTEGER,
			streak_after INTEGER,
			tier         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_milestone_ts ON milestone_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS sync_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			op        TEXT,
			settled   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_ts ON sync_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (j *SQLiteJournal) RecordEarn(evt *EarnEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO earn_events
		(timestamp, activity_id, description, points, total_after)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.ActivityID, evt.Description, evt.PointsEarned, evt.TotalAfter,
	)
	return err
}

func (j *SQLiteJournal) RecordStreak(evt *StreakEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO streak_events
		(timestamp, cause, before, after)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.Cause, evt.Before, evt.After,
	)
	return err
}

func (j *SQLiteJournal) RecordAccrual(evt *AccrualEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO accrual_events
		(timestamp, amount, points, balance_after, next_run)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Amount.String(), evt.PointsConverted,
		evt.BalanceAfter.String(), evt.NextScheduled.Unix(),
	)
	return err
}

func (j *SQLiteJournal) RecordMilestone(evt *MilestoneEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO milestone_events
		(timestamp, total_after, streak_after, tier)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.TotalAfter, evt.StreakAfter, evt.Tier,
	)
	return err
}

func (j *SQLiteJournal) RecordSync(evt *SyncEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	settled := 0
	if evt.Settled {
		settled = 1
	}
	_, err := j.db.Exec(`INSERT INTO sync_events (timestamp, op, settled) VALUES (?,?,?)`,
		time.Now().Unix(), evt.Op, settled,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	log.Println("[INFO] closing sqlite journal")
	return j.db.Close()
}

var _ Journal = (*SQLiteJournal)(nil)
