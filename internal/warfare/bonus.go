package warfare

import (
	"math"
	"math/big"
	"time"

	"github.com/talgya/colony-wars/internal/colony"
)

// BattleModifiers are the admin-set global rates. Read-only to the engine.
type BattleModifiers struct {
	WinStreakBonus uint64        // Attacker bonus rate per streak step
	TerritoryBonus uint64        // Bonus rate per owned territory
	DebtPenalty    uint64        // Percent of base power lost when debt exceeds stake
	WinStreakDecay time.Duration // Streak is void once this much time has passed since the last win
}

// DefaultModifiers returns the production rates.
func DefaultModifiers() BattleModifiers {
	return BattleModifiers{
		WinStreakBonus: 10,
		TerritoryBonus: 20,
		DebtPenalty:    15,
		WinStreakDecay: 72 * time.Hour,
	}
}

// StakeCurve is a three-segment piecewise-linear map from stake ratio to bonus
// percent, with breakpoints at ratio 50 and 100.
type StakeCurve struct {
	Unopposed uint64 // Bonus when the defender staked nothing
	AtZero    uint64
	AtHalf    uint64 // Value at ratio 50
	AtParity  uint64 // Value at ratio 100
	AboveDiv  uint64 // Ratio points per bonus point beyond parity
	Cap       uint64
}

// Default stake curves.
var (
	RaidCurve  = StakeCurve{Unopposed: 25, AtZero: 10, AtHalf: 25, AtParity: 50, AboveDiv: 4, Cap: 100}
	SiegeCurve = StakeCurve{Unopposed: 15, AtZero: 5, AtHalf: 15, AtParity: 35, AboveDiv: 5, Cap: 75}
)

// Bonus evaluates the curve for a stake pair.
func (c StakeCurve) Bonus(stake, defenderStake *big.Int) uint64 {
	if defenderStake == nil || defenderStake.Sign() == 0 {
		return c.Unopposed
	}
	ratio := stakeRatio(stake, defenderStake)

	var bonus uint64
	switch {
	case ratio <= 50:
		bonus = c.AtZero + ratio*(c.AtHalf-c.AtZero)/50
	case ratio <= 100:
		bonus = c.AtHalf + (ratio-50)*(c.AtParity-c.AtHalf)/50
	default:
		step := (ratio - 100) / c.AboveDiv
		if step > c.Cap {
			step = c.Cap
		}
		bonus = c.AtParity + step
	}
	if bonus > c.Cap {
		bonus = c.Cap
	}
	return bonus
}

// StakeBonus returns the stake-ratio bonus percent for a raid or siege.
func StakeBonus(stake, defenderStake *big.Int, isRaid bool) uint64 {
	if isRaid {
		return RaidCurve.Bonus(stake, defenderStake)
	}
	return SiegeCurve.Bonus(stake, defenderStake)
}

// Active defense bonus bounds.
const (
	ActiveDefenseBase      = 6
	ActiveDefenseCap       = 18
	activeDefenseThreshold = 150
	activeDefenseStep      = 20
)

// ActiveDefenseBonus rewards defenders who show up against a heavily staked attack.
func ActiveDefenseBonus(attackerStake, defenderStake *big.Int, hasActiveDefense bool) uint64 {
	if !hasActiveDefense {
		return 0
	}
	if defenderStake == nil || defenderStake.Sign() == 0 {
		return ActiveDefenseCap
	}
	bonus := uint64(ActiveDefenseBase)
	if ratio := stakeRatio(attackerStake, defenderStake); ratio > activeDefenseThreshold {
		extra := (ratio - activeDefenseThreshold) / activeDefenseStep
		if extra > ActiveDefenseCap {
			extra = ActiveDefenseCap
		}
		bonus += extra
	}
	if bonus > ActiveDefenseCap {
		bonus = ActiveDefenseCap
	}
	return bonus
}

// AdditionalBattlePower is the win-streak term (attacker only) plus the
// territory-holding term (both sides).
func AdditionalBattlePower(c *colony.Colony, territories, basePower uint64, isAttacker bool, mods BattleModifiers, now time.Time) uint64 {
	var extra uint64
	if isAttacker {
		streak := uint64(ValidWinStreak(c, mods.WinStreakDecay, now))
		extra += basePower * mods.WinStreakBonus * streak / 500
	}
	extra += basePower * mods.TerritoryBonus * territories / 1000
	return extra
}

// Scouting bonus percents.
const (
	ScoutTerritoryBonus = 8
	ScoutColonyBonus    = 5
)

// ScoutingBonus returns the attacker's intel bonus against target. An unexpired
// report on the attacked territory wins over colony-wide intel.
func ScoutingBonus(reports []colony.ScoutReport, attacker, target colony.ID, territory colony.TerritoryID, now time.Time) uint64 {
	var colonyWide bool
	for _, r := range reports {
		if r.Scout != attacker || r.Target != target || !r.Active(now) {
			continue
		}
		switch r.Kind {
		case colony.ScoutTerritory:
			if territory != 0 && r.Territory == territory {
				return ScoutTerritoryBonus
			}
		case colony.ScoutColony:
			colonyWide = true
		}
	}
	if colonyWide {
		return ScoutColonyBonus
	}
	return 0
}

// stakeRatio is stake*100/defenderStake, truncated and saturated to uint64.
func stakeRatio(stake, defenderStake *big.Int) uint64 {
	if stake == nil || stake.Sign() <= 0 {
		return 0
	}
	r := new(big.Int).Mul(stake, big.NewInt(100))
	r.Quo(r, defenderStake)
	if !r.IsUint64() {
		return math.MaxUint64
	}
	return r.Uint64()
}
