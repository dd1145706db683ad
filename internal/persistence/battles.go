package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pierrec/lz4/v4"

	"github.com/talgya/colony-wars/internal/colony"
	"github.com/talgya/colony-wars/internal/warfare"
)

// MaxTerritoryDamage is the top of the stored territory damage scale.
const MaxTerritoryDamage = 100

var (
	_ warfare.Store             = (*DB)(nil)
	_ warfare.Registry          = (*DB)(nil)
	_ warfare.Roster            = (*DB)(nil)
	_ warfare.StatsProvider     = (*DB)(nil)
	_ warfare.Treasury          = (*DB)(nil)
	_ warfare.DebtTracker       = (*DB)(nil)
	_ warfare.AllianceRegistry  = (*DB)(nil)
	_ warfare.OwnershipResolver = (*DB)(nil)
)

// Commit applies one settlement in a single transaction: colony overwrites,
// score and prize pool increments, territory damage, and the battle log entry.
func (db *DB) Commit(ctx context.Context, s *warfare.Settlement) error {
	report, err := json.Marshal(s.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	packed, err := compressLZ4(report)
	if err != nil {
		return fmt.Errorf("compress report: %w", err)
	}

	err = db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range s.Colonies {
			if err := saveColony(ctx, tx, c); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO seasons (id, prize_pool, started_at) VALUES (?, '0', ?)",
			uint32(s.Season), unixNano(s.At)); err != nil {
			return fmt.Errorf("ensure season %d: %w", s.Season, err)
		}
		for id, pts := range s.Scores {
			_, err := tx.ExecContext(ctx, `INSERT INTO season_scores (season, colony, points) VALUES (?, ?, ?)
				ON CONFLICT(season, colony) DO UPDATE SET points = points + excluded.points`,
				uint32(s.Season), string(id), pts)
			if err != nil {
				return fmt.Errorf("add score for %s: %w", id, err)
			}
		}
		if s.PrizePool != nil && s.PrizePool.Sign() != 0 {
			if err := addPrizePool(ctx, tx, s.Season, s.PrizePool); err != nil {
				return err
			}
		}

		if s.Territory != 0 && s.Damage > 0 {
			_, err := tx.ExecContext(ctx,
				"UPDATE territories SET damage = MIN(?, damage + ?) WHERE id = ?",
				MaxTerritoryDamage, s.Damage, uint64(s.Territory))
			if err != nil {
				return fmt.Errorf("damage territory %d: %w", s.Territory, err)
			}
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO battles (id, kind, season, at, report) VALUES (?, ?, ?, ?, ?)",
			s.ID.String(), s.Kind, uint32(s.Season), unixNano(s.At), packed)
		if err != nil {
			return fmt.Errorf("insert battle %s: %w", s.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("settlement committed", "battle", s.ID, "kind", s.Kind,
		"report_bytes", len(report), "stored_bytes", len(packed))
	return nil
}

func addPrizePool(ctx context.Context, tx *sqlx.Tx, season colony.SeasonID, amount *big.Int) error {
	var raw string
	if err := tx.GetContext(ctx, &raw, "SELECT prize_pool FROM seasons WHERE id = ?", uint32(season)); err != nil {
		return fmt.Errorf("load prize pool %d: %w", season, err)
	}
	pool, err := parseAmount(raw)
	if err != nil {
		return err
	}
	pool.Add(pool, amount)
	if _, err := tx.ExecContext(ctx, "UPDATE seasons SET prize_pool = ? WHERE id = ?",
		pool.String(), uint32(season)); err != nil {
		return fmt.Errorf("update prize pool %d: %w", season, err)
	}
	return nil
}

// BattleRecord is one battle log entry with its decoded report.
type BattleRecord struct {
	ID     uuid.UUID
	Kind   string
	Season colony.SeasonID
	At     time.Time
	Report json.RawMessage
}

// Battle loads one battle log entry.
func (db *DB) Battle(ctx context.Context, id uuid.UUID) (*BattleRecord, error) {
	var row struct {
		Kind   string `db:"kind"`
		Season uint32 `db:"season"`
		At     int64  `db:"at"`
		Report []byte `db:"report"`
	}
	err := db.conn.GetContext(ctx, &row, "SELECT kind, season, at, report FROM battles WHERE id = ?", id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("battle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load battle %s: %w", id, err)
	}
	report, err := decompressLZ4(row.Report)
	if err != nil {
		return nil, fmt.Errorf("decompress battle %s: %w", id, err)
	}
	return &BattleRecord{
		ID:     id,
		Kind:   row.Kind,
		Season: colony.SeasonID(row.Season),
		At:     fromUnixNano(row.At),
		Report: report,
	}, nil
}

// BattleCount returns how many battles a season logged.
func (db *DB) BattleCount(ctx context.Context, season colony.SeasonID) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM battles WHERE season = ?", uint32(season))
	return n, err
}

// Pay records a treasury payout to a colony.
func (db *DB) Pay(ctx context.Context, to colony.ID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO payouts (colony, amount, at) VALUES (?, ?, ?)",
		string(to), amount.String(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("record payout to %s: %w", to, err)
	}
	return nil
}

// Paid sums every payout a colony has received.
func (db *DB) Paid(ctx context.Context, id colony.ID) (*big.Int, error) {
	var amounts []string
	if err := db.conn.SelectContext(ctx, &amounts, "SELECT amount FROM payouts WHERE colony = ?", string(id)); err != nil {
		return nil, fmt.Errorf("load payouts of %s: %w", id, err)
	}
	total := new(big.Int)
	for _, raw := range amounts {
		v, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	return total, nil
}

func compressLZ4(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lz4.NewReader(bytes.NewReader(src))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
