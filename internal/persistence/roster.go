package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/colony-wars/internal/colony"
	"github.com/talgya/colony-wars/internal/warfare"
)

// Token is one roster entry: a token, the colony it fights for, and who
// controls it.
type Token struct {
	Ref      warfare.TokenRef
	Colony   colony.ID
	Owner    colony.Address
	StakedBy colony.Address // Real owner while Owner is a staking contract
	InBattle bool
	Stats    warfare.TokenStats
}

// SaveTokens writes roster entries, replacing existing ones.
func (db *DB) SaveTokens(ctx context.Context, tokens []Token) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `INSERT OR REPLACE INTO tokens
			(collection, token, colony, owner, staked_by, in_battle, stats_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range tokens {
			statsJSON, _ := json.Marshal(t.Stats)
			_, err := stmt.ExecContext(ctx,
				t.Ref.Collection, t.Ref.Token, string(t.Colony), string(t.Owner),
				string(t.StakedBy), boolInt(t.InBattle), string(statsJSON),
			)
			if err != nil {
				return fmt.Errorf("insert token %d/%d: %w", t.Ref.Collection, t.Ref.Token, err)
			}
		}
		return nil
	})
}

// SetInBattle marks tokens as committed to, or released from, a battle.
func (db *DB) SetInBattle(ctx context.Context, refs []warfare.TokenRef, inBattle bool) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, ref := range refs {
			_, err := tx.ExecContext(ctx,
				"UPDATE tokens SET in_battle = ? WHERE collection = ? AND token = ?",
				boolInt(inBattle), ref.Collection, ref.Token,
			)
			if err != nil {
				return fmt.Errorf("update token %d/%d: %w", ref.Collection, ref.Token, err)
			}
		}
		return nil
	})
}

// IsMember reports whether the token currently belongs to the colony.
func (db *DB) IsMember(ctx context.Context, id colony.ID, ref warfare.TokenRef) (bool, error) {
	var n int
	err := db.conn.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM tokens WHERE collection = ? AND token = ? AND colony = ?",
		ref.Collection, ref.Token, string(id),
	)
	return n > 0, err
}

// InActiveBattle reports whether the token is committed elsewhere.
func (db *DB) InActiveBattle(ctx context.Context, ref warfare.TokenRef) (bool, error) {
	var inBattle int
	err := db.conn.GetContext(ctx, &inBattle,
		"SELECT in_battle FROM tokens WHERE collection = ? AND token = ?",
		ref.Collection, ref.Token,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return inBattle != 0, err
}

// Members lists the colony's tokens in a stable order.
func (db *DB) Members(ctx context.Context, id colony.ID) ([]warfare.TokenRef, error) {
	var refs []warfare.TokenRef
	err := db.conn.SelectContext(ctx, &refs,
		"SELECT collection, token FROM tokens WHERE colony = ? ORDER BY collection, token",
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", id, err)
	}
	return refs, nil
}

// TokenStats returns stats for refs in request order.
func (db *DB) TokenStats(ctx context.Context, refs []warfare.TokenRef) ([]warfare.TokenStats, error) {
	out := make([]warfare.TokenStats, len(refs))
	for i, ref := range refs {
		var raw string
		err := db.conn.GetContext(ctx, &raw,
			"SELECT stats_json FROM tokens WHERE collection = ? AND token = ?",
			ref.Collection, ref.Token,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token %d/%d: %w", ref.Collection, ref.Token, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("load token %d/%d: %w", ref.Collection, ref.Token, err)
		}
		if err := json.Unmarshal([]byte(raw), &out[i]); err != nil {
			return nil, fmt.Errorf("decode token %d/%d stats: %w", ref.Collection, ref.Token, err)
		}
	}
	return out, nil
}

// EffectiveOwner returns whoever staked the token, or its holder when unstaked.
func (db *DB) EffectiveOwner(ctx context.Context, ref warfare.TokenRef) (colony.Address, error) {
	var row struct {
		Owner    string `db:"owner"`
		StakedBy string `db:"staked_by"`
	}
	err := db.conn.GetContext(ctx, &row,
		"SELECT owner, staked_by FROM tokens WHERE collection = ? AND token = ?",
		ref.Collection, ref.Token,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("token %d/%d: %w", ref.Collection, ref.Token, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load token %d/%d: %w", ref.Collection, ref.Token, err)
	}
	if row.StakedBy != "" {
		return colony.Address(row.StakedBy), nil
	}
	return colony.Address(row.Owner), nil
}
