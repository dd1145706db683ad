package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/colony-wars/internal/colony"
)

type colonyRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	Creator        string `db:"creator"`
	WinStreak      uint32 `db:"win_streak"`
	LastWinAt      int64  `db:"last_win_at"`
	Reputation     uint8  `db:"reputation"`
	DefensiveStake string `db:"defensive_stake"`
	Losses         string `db:"losses"`
	SquadActive    int    `db:"squad_active"`
	SquadSynergy   uint16 `db:"squad_synergy"`
	LossSeason     uint32 `db:"loss_season"`
	LossCount      uint32 `db:"loss_count"`
	LastLossAt     int64  `db:"last_loss_at"`
}

func (r colonyRow) colony() (*colony.Colony, error) {
	stake, err := parseAmount(r.DefensiveStake)
	if err != nil {
		return nil, fmt.Errorf("colony %s stake: %w", r.ID, err)
	}
	losses, err := parseAmount(r.Losses)
	if err != nil {
		return nil, fmt.Errorf("colony %s losses: %w", r.ID, err)
	}
	return &colony.Colony{
		ID:             colony.ID(r.ID),
		Name:           r.Name,
		Creator:        colony.Address(r.Creator),
		WinStreak:      r.WinStreak,
		LastWinAt:      fromUnixNano(r.LastWinAt),
		Reputation:     r.Reputation,
		DefensiveStake: stake,
		Losses:         losses,
		Squad:          colony.SquadPosition{Active: r.SquadActive != 0, Synergy: r.SquadSynergy},
		Defeat: colony.LossRecord{
			Season:     colony.SeasonID(r.LossSeason),
			Count:      r.LossCount,
			LastLossAt: fromUnixNano(r.LastLossAt),
		},
	}, nil
}

const upsertColony = `INSERT INTO colonies
	(id, name, creator, win_streak, last_win_at, reputation, defensive_stake, losses,
	 squad_active, squad_synergy, loss_season, loss_count, last_loss_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		creator = excluded.creator,
		win_streak = excluded.win_streak,
		last_win_at = excluded.last_win_at,
		reputation = excluded.reputation,
		defensive_stake = excluded.defensive_stake,
		losses = excluded.losses,
		squad_active = excluded.squad_active,
		squad_synergy = excluded.squad_synergy,
		loss_season = excluded.loss_season,
		loss_count = excluded.loss_count,
		last_loss_at = excluded.last_loss_at`

func saveColony(ctx context.Context, tx *sqlx.Tx, c *colony.Colony) error {
	_, err := tx.ExecContext(ctx, upsertColony,
		string(c.ID), c.Name, string(c.Creator), c.WinStreak, unixNano(c.LastWinAt),
		c.Reputation, formatAmount(c.DefensiveStake), formatAmount(c.Losses),
		boolInt(c.Squad.Active), c.Squad.Synergy,
		uint32(c.Defeat.Season), c.Defeat.Count, unixNano(c.Defeat.LastLossAt),
	)
	if err != nil {
		return fmt.Errorf("upsert colony %s: %w", c.ID, err)
	}
	return nil
}

// SaveColonies writes colonies, replacing existing records with the same id.
func (db *DB) SaveColonies(ctx context.Context, colonies ...*colony.Colony) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range colonies {
			if err := saveColony(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Colony loads one colony.
func (db *DB) Colony(ctx context.Context, id colony.ID) (*colony.Colony, error) {
	var row colonyRow
	err := db.conn.GetContext(ctx, &row, "SELECT * FROM colonies WHERE id = ?", string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("colony %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load colony %s: %w", id, err)
	}
	return row.colony()
}

// Colonies lists every colony ordered by id.
func (db *DB) Colonies(ctx context.Context) ([]*colony.Colony, error) {
	var rows []colonyRow
	if err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM colonies ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list colonies: %w", err)
	}
	out := make([]*colony.Colony, 0, len(rows))
	for _, r := range rows {
		c, err := r.colony()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type territoryRow struct {
	ID           uint64 `db:"id"`
	Name         string `db:"name"`
	Q            int    `db:"pos_q"`
	R            int    `db:"pos_r"`
	Owner        string `db:"owner"`
	Fortify      uint8  `db:"fortification"`
	Damage       uint64 `db:"damage"`
	ActiveSieges string `db:"active_sieges_json"`
}

func (r territoryRow) territory() (*colony.Territory, error) {
	t := &colony.Territory{
		ID:                 colony.TerritoryID(r.ID),
		Name:               r.Name,
		Q:                  r.Q,
		R:                  r.R,
		Owner:              colony.ID(r.Owner),
		FortificationLevel: r.Fortify,
		Damage:             r.Damage,
	}
	if err := json.Unmarshal([]byte(r.ActiveSieges), &t.ActiveSieges); err != nil {
		return nil, fmt.Errorf("territory %d sieges: %w", r.ID, err)
	}
	return t, nil
}

// SaveTerritories writes territories, replacing existing records with the same id.
func (db *DB) SaveTerritories(ctx context.Context, territories []*colony.Territory) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `INSERT OR REPLACE INTO territories
			(id, name, pos_q, pos_r, owner, fortification, damage, active_sieges_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range territories {
			sieges := t.ActiveSieges
			if sieges == nil {
				sieges = []string{}
			}
			siegesJSON, _ := json.Marshal(sieges)
			_, err := stmt.ExecContext(ctx,
				uint64(t.ID), t.Name, t.Q, t.R, string(t.Owner),
				t.FortificationLevel, t.Damage, string(siegesJSON),
			)
			if err != nil {
				return fmt.Errorf("insert territory %d: %w", t.ID, err)
			}
		}
		return nil
	})
}

// Territory loads one territory.
func (db *DB) Territory(ctx context.Context, id colony.TerritoryID) (*colony.Territory, error) {
	var row territoryRow
	err := db.conn.GetContext(ctx, &row, "SELECT * FROM territories WHERE id = ?", uint64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("territory %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load territory %d: %w", id, err)
	}
	return row.territory()
}

// Territories lists every territory ordered by id.
func (db *DB) Territories(ctx context.Context) ([]*colony.Territory, error) {
	var rows []territoryRow
	if err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM territories ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}
	out := make([]*colony.Territory, 0, len(rows))
	for _, r := range rows {
		t, err := r.territory()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// TerritoryCount returns how many territories a colony holds.
func (db *DB) TerritoryCount(ctx context.Context, id colony.ID) (uint64, error) {
	var n uint64
	err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM territories WHERE owner = ?", string(id))
	if err != nil {
		return 0, fmt.Errorf("count territories of %s: %w", id, err)
	}
	return n, nil
}

// SaveScoutReport records intel gathered by a scout.
func (db *DB) SaveScoutReport(ctx context.Context, r colony.ScoutReport) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO scout_reports (scout, target, kind, territory, expires_at) VALUES (?, ?, ?, ?, ?)",
		string(r.Scout), string(r.Target), uint8(r.Kind), uint64(r.Territory), unixNano(r.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert scout report: %w", err)
	}
	return nil
}

// ScoutReports returns every report scout holds on target, expired or not.
func (db *DB) ScoutReports(ctx context.Context, scout, target colony.ID) ([]colony.ScoutReport, error) {
	var rows []struct {
		Kind      uint8  `db:"kind"`
		Territory uint64 `db:"territory"`
		ExpiresAt int64  `db:"expires_at"`
	}
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT kind, territory, expires_at FROM scout_reports WHERE scout = ? AND target = ? ORDER BY id",
		string(scout), string(target),
	)
	if err != nil {
		return nil, fmt.Errorf("load scout reports: %w", err)
	}
	out := make([]colony.ScoutReport, len(rows))
	for i, r := range rows {
		out[i] = colony.ScoutReport{
			Scout:     scout,
			Target:    target,
			Kind:      colony.ScoutKind(r.Kind),
			Territory: colony.TerritoryID(r.Territory),
			ExpiresAt: fromUnixNano(r.ExpiresAt),
		}
	}
	return out, nil
}
