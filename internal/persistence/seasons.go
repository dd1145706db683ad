package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/talgya/colony-wars/internal/colony"
	"github.com/talgya/colony-wars/internal/warfare"
)

// StartSeason creates or replaces a season record. Existing scores are kept.
func (db *DB) StartSeason(ctx context.Context, s colony.Season) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO seasons (id, prize_pool, started_at, ends_at) VALUES (?, ?, ?, ?)",
		uint32(s.ID), formatAmount(s.PrizePool), unixNano(s.StartedAt), unixNano(s.EndsAt),
	)
	if err != nil {
		return fmt.Errorf("save season %d: %w", s.ID, err)
	}
	return nil
}

// Season loads a season with its full scoreboard.
func (db *DB) Season(ctx context.Context, id colony.SeasonID) (*colony.Season, error) {
	var row struct {
		PrizePool string `db:"prize_pool"`
		StartedAt int64  `db:"started_at"`
		EndsAt    int64  `db:"ends_at"`
	}
	err := db.conn.GetContext(ctx, &row,
		"SELECT prize_pool, started_at, ends_at FROM seasons WHERE id = ?", uint32(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("season %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load season %d: %w", id, err)
	}
	pool, err := parseAmount(row.PrizePool)
	if err != nil {
		return nil, fmt.Errorf("season %d prize pool: %w", id, err)
	}

	var scores []struct {
		Colony string `db:"colony"`
		Points uint64 `db:"points"`
	}
	if err := db.conn.SelectContext(ctx, &scores,
		"SELECT colony, points FROM season_scores WHERE season = ?", uint32(id)); err != nil {
		return nil, fmt.Errorf("load season %d scores: %w", id, err)
	}

	s := &colony.Season{
		ID:        id,
		PrizePool: pool,
		Scores:    make(map[colony.ID]uint64, len(scores)),
		StartedAt: fromUnixNano(row.StartedAt),
		EndsAt:    fromUnixNano(row.EndsAt),
	}
	for _, sc := range scores {
		s.Scores[colony.ID(sc.Colony)] = sc.Points
	}
	return s, nil
}

// Standing is one leaderboard row.
type Standing struct {
	Colony colony.ID `db:"colony"`
	Name   string    `db:"name"`
	Points uint64    `db:"points"`
}

// Leaderboard returns the top colonies of a season, highest score first.
func (db *DB) Leaderboard(ctx context.Context, season colony.SeasonID, limit int) ([]Standing, error) {
	var out []Standing
	err := db.conn.SelectContext(ctx, &out, `
		SELECT s.colony AS colony, COALESCE(c.name, '') AS name, s.points AS points
		FROM season_scores s LEFT JOIN colonies c ON c.id = s.colony
		WHERE s.season = ?
		ORDER BY s.points DESC, s.colony ASC
		LIMIT ?`,
		uint32(season), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %d: %w", season, err)
	}
	return out, nil
}

// SetPrimaryColony records which colony an owner defends with by default.
func (db *DB) SetPrimaryColony(ctx context.Context, owner colony.Address, id colony.ID) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO primary_colonies (owner, colony) VALUES (?, ?)",
		string(owner), string(id),
	)
	return err
}

// PrimaryColony returns the owner's primary colony, or "" if none is set.
func (db *DB) PrimaryColony(ctx context.Context, owner colony.Address) (colony.ID, error) {
	var id string
	err := db.conn.GetContext(ctx, &id, "SELECT colony FROM primary_colonies WHERE owner = ?", string(owner))
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return colony.ID(id), err
}

// SetColonyOwner records who controls a colony, for example after a transfer.
func (db *DB) SetColonyOwner(ctx context.Context, id colony.ID, owner colony.Address) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO colony_owners (colony, owner) VALUES (?, ?)",
		string(id), string(owner),
	)
	if err != nil {
		return fmt.Errorf("set owner of %s: %w", id, err)
	}
	return nil
}

// ColonyOwner returns the recorded controller of a colony, or "" if none.
func (db *DB) ColonyOwner(ctx context.Context, id colony.ID) (colony.Address, error) {
	var owner string
	err := db.conn.GetContext(ctx, &owner, "SELECT owner FROM colony_owners WHERE colony = ?", string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return colony.Address(owner), err
}

// RegisterForSeason enrolls a colony in a season.
func (db *DB) RegisterForSeason(ctx context.Context, season colony.SeasonID, id colony.ID) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR IGNORE INTO season_registrations (season, colony) VALUES (?, ?)",
		uint32(season), string(id),
	)
	return err
}

// SeasonRegistered reports whether the colony is enrolled in the season.
func (db *DB) SeasonRegistered(ctx context.Context, season colony.SeasonID, id colony.ID) (bool, error) {
	var n int
	err := db.conn.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM season_registrations WHERE season = ? AND colony = ?",
		uint32(season), string(id),
	)
	return n > 0, err
}

// SetDebt records a colony's outstanding debt.
func (db *DB) SetDebt(ctx context.Context, id colony.ID, amount *big.Int) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO debts (colony, amount) VALUES (?, ?)",
		string(id), formatAmount(amount),
	)
	return err
}

// CurrentColonyDebt returns the colony's debt, zero when none is recorded.
func (db *DB) CurrentColonyDebt(ctx context.Context, id colony.ID) (*big.Int, error) {
	var raw string
	err := db.conn.GetContext(ctx, &raw, "SELECT amount FROM debts WHERE colony = ?", string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load debt of %s: %w", id, err)
	}
	return parseAmount(raw)
}

// SetAlliance records alliance support available to a colony.
func (db *DB) SetAlliance(ctx context.Context, id colony.ID, b warfare.AllianceBonus) error {
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO alliances
		(colony, defensive_bonus_pct, reinforcement_tokens, shared_stake_bonus)
		VALUES (?, ?, ?, ?)`,
		string(id), b.DefensiveBonusPct, b.ReinforcementTokens, b.SharedStakeBonus,
	)
	return err
}

// AllianceDefensiveBonuses returns the colony's alliance support, if any.
func (db *DB) AllianceDefensiveBonuses(ctx context.Context, id colony.ID) (warfare.AllianceBonus, error) {
	var row struct {
		DefensiveBonusPct   uint64 `db:"defensive_bonus_pct"`
		ReinforcementTokens uint64 `db:"reinforcement_tokens"`
		SharedStakeBonus    uint64 `db:"shared_stake_bonus"`
	}
	err := db.conn.GetContext(ctx, &row, `SELECT defensive_bonus_pct, reinforcement_tokens, shared_stake_bonus
		FROM alliances WHERE colony = ?`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return warfare.AllianceBonus{}, nil
	}
	if err != nil {
		return warfare.AllianceBonus{}, fmt.Errorf("load alliance of %s: %w", id, err)
	}
	return warfare.AllianceBonus{
		HasAlliance:         true,
		DefensiveBonusPct:   row.DefensiveBonusPct,
		ReinforcementTokens: row.ReinforcementTokens,
		SharedStakeBonus:    row.SharedStakeBonus,
	}, nil
}
