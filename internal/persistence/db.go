// Package persistence provides SQLite-based storage for colonies, territories,
// token rosters, seasons, and the battle log.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for warfare state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; settlements are short transactions.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS colonies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		creator TEXT NOT NULL,
		win_streak INTEGER NOT NULL DEFAULT 0,
		last_win_at INTEGER NOT NULL DEFAULT 0,
		reputation INTEGER NOT NULL DEFAULT 0,
		defensive_stake TEXT NOT NULL DEFAULT '0',
		losses TEXT NOT NULL DEFAULT '0',
		squad_active INTEGER NOT NULL DEFAULT 0,
		squad_synergy INTEGER NOT NULL DEFAULT 0,
		loss_season INTEGER NOT NULL DEFAULT 0,
		loss_count INTEGER NOT NULL DEFAULT 0,
		last_loss_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS territories (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		fortification INTEGER NOT NULL DEFAULT 0,
		damage INTEGER NOT NULL DEFAULT 0,
		active_sieges_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS tokens (
		collection INTEGER NOT NULL,
		token INTEGER NOT NULL,
		colony TEXT NOT NULL,
		owner TEXT NOT NULL,
		staked_by TEXT NOT NULL DEFAULT '',
		in_battle INTEGER NOT NULL DEFAULT 0,
		stats_json TEXT NOT NULL,
		PRIMARY KEY (collection, token)
	);

	CREATE TABLE IF NOT EXISTS primary_colonies (
		owner TEXT PRIMARY KEY,
		colony TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS colony_owners (
		colony TEXT PRIMARY KEY,
		owner TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS seasons (
		id INTEGER PRIMARY KEY,
		prize_pool TEXT NOT NULL DEFAULT '0',
		started_at INTEGER NOT NULL DEFAULT 0,
		ends_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS season_registrations (
		season INTEGER NOT NULL,
		colony TEXT NOT NULL,
		PRIMARY KEY (season, colony)
	);

	CREATE TABLE IF NOT EXISTS season_scores (
		season INTEGER NOT NULL,
		colony TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (season, colony)
	);

	CREATE TABLE IF NOT EXISTS debts (
		colony TEXT PRIMARY KEY,
		amount TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alliances (
		colony TEXT PRIMARY KEY,
		defensive_bonus_pct INTEGER NOT NULL,
		reinforcement_tokens INTEGER NOT NULL,
		shared_stake_bonus INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scout_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scout TEXT NOT NULL,
		target TEXT NOT NULL,
		kind INTEGER NOT NULL,
		territory INTEGER NOT NULL DEFAULT 0,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS battles (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		season INTEGER NOT NULL,
		at INTEGER NOT NULL,
		report BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payouts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		colony TEXT NOT NULL,
		amount TEXT NOT NULL,
		at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tokens_colony ON tokens(colony);
	CREATE INDEX IF NOT EXISTS idx_territories_owner ON territories(owner);
	CREATE INDEX IF NOT EXISTS idx_scout_pair ON scout_reports(scout, target);
	CREATE INDEX IF NOT EXISTS idx_battles_season ON battles(season);
	CREATE INDEX IF NOT EXISTS idx_payouts_colony ON payouts(colony);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// Amounts are stored as base-10 TEXT; SQLite integers stop at 2^63.
func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse amount %q", s)
	}
	return v, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (db *DB) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
