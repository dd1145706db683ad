package warfare

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/colony-wars/internal/colony"
)

// Auto-defense defaults. Passive defenders fight at a discount.
const (
	DefaultAutoDefensePenalty = 20 // Percent
	DefaultAutoDefenseTokens  = 5
)

// AutoDefense is the selection and power of a passive defense.
type AutoDefense struct {
	Tokens []TokenRef `json:"tokens"`
	Power  uint64     `json:"power"`
}

// AutoDefense picks tokens to defend a colony whose owner did not respond.
// An unmet precondition or an empty roster yields an empty defense, not an error.
func (s *Selector) AutoDefense(ctx context.Context, stats StatsProvider, c *colony.Colony, owner colony.Address, season colony.SeasonID, maxCount int, penaltyPct uint64) (AutoDefense, error) {
	if c.Creator != owner {
		slog.Debug("auto-defense skipped: owner mismatch", "colony", c.ID)
		return AutoDefense{}, nil
	}
	primary, err := s.Registry.PrimaryColony(ctx, owner)
	if err != nil {
		return AutoDefense{}, fmt.Errorf("primary colony: %w", err)
	}
	if primary != c.ID {
		slog.Debug("auto-defense skipped: not primary colony", "colony", c.ID)
		return AutoDefense{}, nil
	}
	registered, err := s.Registry.SeasonRegistered(ctx, season, c.ID)
	if err != nil {
		return AutoDefense{}, fmt.Errorf("season registration: %w", err)
	}
	if !registered {
		slog.Debug("auto-defense skipped: not registered for season", "colony", c.ID, "season", season)
		return AutoDefense{}, nil
	}

	members, err := s.Roster.Members(ctx, c.ID)
	if err != nil {
		return AutoDefense{}, fmt.Errorf("colony members: %w", err)
	}
	picked, err := s.SelectAvailableTokens(ctx, members, c.ID, maxCount)
	if err != nil {
		return AutoDefense{}, err
	}
	if len(picked) == 0 {
		return AutoDefense{}, nil
	}

	tokenStats, err := stats.TokenStats(ctx, picked)
	if err != nil {
		return AutoDefense{}, fmt.Errorf("token stats: %w", err)
	}
	power := TotalPower(tokenStats)
	if penaltyPct > 100 {
		penaltyPct = 100
	}
	power -= power * penaltyPct / 100

	return AutoDefense{Tokens: picked, Power: power}, nil
}
