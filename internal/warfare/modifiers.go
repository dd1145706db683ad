package warfare

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/colony-wars/internal/colony"
)

// Alliance support constants.
const (
	allianceBonusDivisor       = 150
	territoryReinforcementUnit = 60
	colonyReinforcementUnit    = 100
	territorySharedStakePct    = 10
	colonySharedStakePct       = 15
)

// Aggregator folds collaborator-reported modifiers into battle power.
type Aggregator struct {
	Debt      DebtTracker
	Alliances AllianceRegistry
	Owners    OwnershipResolver
	Modifiers BattleModifiers
}

// DebtPenalty is basePower*DebtPenalty/100 when the colony owes more than its
// defensive stake. A failed debt lookup counts as no debt.
func (a *Aggregator) DebtPenalty(ctx context.Context, c *colony.Colony, basePower uint64) uint64 {
	if a.Debt == nil {
		return 0
	}
	debt, err := a.Debt.CurrentColonyDebt(ctx, c.ID)
	if err != nil {
		slog.Debug("debt lookup unavailable", "colony", c.ID, "error", err)
		return 0
	}
	if debt == nil || debt.Cmp(c.Stake()) <= 0 {
		return 0
	}
	return basePower * a.Modifiers.DebtPenalty / 100
}

// ApplyAllianceBonuses returns basePower plus alliance support for the defender.
// If the alliance lookup fails, basePower is returned unchanged.
func (a *Aggregator) ApplyAllianceBonuses(ctx context.Context, basePower uint64, defender colony.ID, isTerritory bool) uint64 {
	if a.Alliances == nil {
		return basePower
	}
	bonus, err := a.Alliances.AllianceDefensiveBonuses(ctx, defender)
	if err != nil {
		slog.Debug("alliance lookup unavailable", "colony", defender, "error", err)
		return basePower
	}
	if !bonus.HasAlliance {
		return basePower
	}

	power := basePower + basePower*bonus.DefensiveBonusPct/allianceBonusDivisor
	if isTerritory {
		power += bonus.ReinforcementTokens * territoryReinforcementUnit
		power += bonus.SharedStakeBonus * territorySharedStakePct / 100
	} else {
		power += bonus.ReinforcementTokens * colonyReinforcementUnit
		power += bonus.SharedStakeBonus * colonySharedStakePct / 100
	}
	return power
}

// ApplyTeamSynergyBonus adds basePower*synergy/1000 for an active squad.
func ApplyTeamSynergyBonus(c *colony.Colony, basePower uint64) uint64 {
	if !c.Squad.Active || c.Squad.Synergy == 0 {
		return basePower
	}
	synergy := uint64(min(c.Squad.Synergy, 500))
	return basePower + basePower*synergy/1000
}

// AuthorizeForColony checks the caller controls own and does not control opposing.
func (a *Aggregator) AuthorizeForColony(caller colony.Address, own, opposing *colony.Colony) error {
	if own.ID == opposing.ID {
		return ErrSameColony
	}
	if own.Creator != caller {
		return fmt.Errorf("colony %s: %w", own.ID, ErrNotAuthorized)
	}
	if opposing.Creator == caller {
		return fmt.Errorf("colony %s: %w", opposing.ID, ErrConflictOfInterest)
	}
	return nil
}

// CheckTokensForWarfareConflict rejects any token whose effective controller,
// direct or through staking delegation, is the opposing colony's creator.
func (a *Aggregator) CheckTokensForWarfareConflict(ctx context.Context, tokens []TokenRef, opposing *colony.Colony) error {
	if a == nil || a.Owners == nil {
		return nil
	}
	for _, ref := range tokens {
		owner, err := a.Owners.EffectiveOwner(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolve owner of %d/%d: %w", ref.Collection, ref.Token, err)
		}
		if owner == opposing.Creator {
			return fmt.Errorf("token %d/%d: %w", ref.Collection, ref.Token, ErrConflictOfInterest)
		}
	}
	return nil
}
