// Package colony provides the colony, territory, and season records the warfare
// engine reads and updates.
package colony

import (
	"math/big"
	"time"
)

// ID is a unique identifier for a colony.
type ID string

// Address identifies a player wallet.
type Address string

// TerritoryID is a unique identifier for a territory. Zero means "no territory".
type TerritoryID uint64

// SeasonID identifies a ranking season.
type SeasonID uint32

// Colony is a faction grouping of tokens with shared reputation, stake, and score.
type Colony struct {
	ID      ID      `json:"id"`
	Name    string  `json:"name"`
	Creator Address `json:"creator"`

	// Raw stored streak. Callers must go through the warfare package to read
	// the capped, decay-aware value.
	WinStreak uint32    `json:"win_streak"`
	LastWinAt time.Time `json:"last_win_at"`

	// Reputation only ratchets up to floors set by forfeits.
	Reputation uint8 `json:"reputation"`

	DefensiveStake *big.Int `json:"defensive_stake"`
	Losses         *big.Int `json:"losses"` // Cumulative stake lost in battles and forfeits

	Squad  SquadPosition `json:"squad"`
	Defeat LossRecord    `json:"defeat"`
}

// SquadPosition is the colony's staked squad configuration.
type SquadPosition struct {
	Active  bool   `json:"active"`
	Synergy uint16 `json:"synergy"` // 0–500, i.e. 0–50%
}

// LossRecord tracks consecutive losses inside one season.
type LossRecord struct {
	Season     SeasonID  `json:"season"`
	Count      uint32    `json:"count"`
	LastLossAt time.Time `json:"last_loss_at"`
}

// Clone returns a deep copy so engine results never alias stored balances.
func (c *Colony) Clone() *Colony {
	cp := *c
	cp.DefensiveStake = cloneAmount(c.DefensiveStake)
	cp.Losses = cloneAmount(c.Losses)
	return &cp
}

// Stake returns the defensive stake, treating nil as zero.
func (c *Colony) Stake() *big.Int {
	if c.DefensiveStake == nil {
		return new(big.Int)
	}
	return c.DefensiveStake
}

// Territory is a contested map region.
type Territory struct {
	ID                 TerritoryID `json:"id"`
	Name               string      `json:"name"`
	Q                  int         `json:"q"`
	R                  int         `json:"r"`
	Owner              ID          `json:"owner"`
	FortificationLevel uint8       `json:"fortification_level"` // 0–5
	Damage             uint64      `json:"damage"`              // 0–100
	ActiveSieges       []string    `json:"active_sieges"`
}

// Season holds the prize pool and scoreboard for one ranking period.
type Season struct {
	ID        SeasonID      `json:"id"`
	PrizePool *big.Int      `json:"prize_pool"`
	Scores    map[ID]uint64 `json:"scores"`
	StartedAt time.Time     `json:"started_at"`
	EndsAt    time.Time     `json:"ends_at"`
}

// ScoutKind distinguishes colony-wide intel from territory-specific intel.
type ScoutKind uint8

const (
	ScoutColony    ScoutKind = iota // Intel on the whole target colony
	ScoutTerritory                  // Intel on one territory of the target
)

// ScoutReport is a temporary intelligence advantage granted to an attacker.
type ScoutReport struct {
	Scout     ID          `json:"scout"`
	Target    ID          `json:"target"`
	Kind      ScoutKind   `json:"kind"`
	Territory TerritoryID `json:"territory,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Active reports whether the report is still usable at now.
func (r ScoutReport) Active(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
