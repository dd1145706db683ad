package warfare

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/colony-wars/internal/colony"
	"github.com/talgya/colony-wars/internal/weather"
)

// Kind distinguishes raids from sieges. They use different stake curves.
type Kind uint8

const (
	KindRaid  Kind = iota // Colony against colony
	KindSiege             // Attack on a territory
)

func (k Kind) String() string {
	switch k {
	case KindRaid:
		return "raid"
	case KindSiege:
		return "siege"
	default:
		return "unknown"
	}
}

// Siege tuning.
const (
	FortificationPctPerLevel = 5
	HomeFieldPct             = 20
	ActiveDefensePowerPct    = 10

	MinTerritoryDamage  = 5
	MaxTerritoryDamage  = 50 // Half the 0–100 scale: no single siege destroys a territory
	MaxStakeDamage      = 20
	ActiveStakeLossPct  = 15
	PassiveStakeLossPct = 25

	WinnerPoints        = 50
	MaxStakeRatioPoints = 20
	MaxActiveDefensePts = 15
	LoserPoints         = 10
	ActiveLoserPoints   = 5
)

var tokenUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Engagement is everything one resolution reads. It is built fresh per battle.
type Engagement struct {
	ID        uuid.UUID
	Kind      Kind
	Season    colony.SeasonID
	Attacker  *colony.Colony
	Defender  *colony.Colony
	Territory *colony.Territory // nil for colony battles

	AttackerStake *big.Int
	DefenderStake *big.Int

	AttackerTokens []TokenStats
	DefenderTokens []TokenStats // Actively committed; empty means passive defense
	AutoDefense    uint64       // Passive defense power, used when DefenderTokens is empty

	AttackerTerritories uint64
	DefenderTerritories uint64
	Scouting            []colony.ScoutReport

	Seed Seed
	Now  time.Time
}

// ActiveDefense reports whether the defender committed tokens. A committed
// token with zero power still counts.
func (e *Engagement) ActiveDefense() bool {
	return len(e.DefenderTokens) > 0
}

// Result is the outcome of one resolution. The engine never writes it anywhere.
type Result struct {
	Engagement uuid.UUID         `json:"engagement"`
	Kind       Kind              `json:"kind"`
	Weather    weather.Condition `json:"weather"`

	AttackerBase  uint64 `json:"attacker_base"`
	DefenderBase  uint64 `json:"defender_base"`
	StakeBonusPct uint64 `json:"stake_bonus_pct"`
	ScoutingPct   uint64 `json:"scouting_pct"`
	DebtPenalty   uint64 `json:"debt_penalty"`
	AttackerPower uint64 `json:"attacker_power"` // Before variance
	DefenderPower uint64 `json:"defender_power"` // Before variance
	FinalAttacker uint64 `json:"final_attacker"`
	FinalDefender uint64 `json:"final_defender"`

	AttackerWon   bool     `json:"attacker_won"`
	ActiveDefense bool     `json:"active_defense"`
	Damage        uint64   `json:"damage"`
	StakeLoss     *big.Int `json:"stake_loss"` // Lost by the losing side
	WinnerPoints  uint64   `json:"winner_points"`
	LoserPoints   uint64   `json:"loser_points"`
}

// Winner returns the winning colony.
func (r *Result) Winner(e *Engagement) *colony.Colony {
	if r.AttackerWon {
		return e.Attacker
	}
	return e.Defender
}

// Resolver turns an engagement into a result.
type Resolver struct {
	Agg *Aggregator
}

// Resolve runs the siege state machine. Modifier order is fixed:
// base → synergy → stake/territory/scouting → debt → variance.
func (r *Resolver) Resolve(ctx context.Context, e *Engagement) (*Result, error) {
	if e.Attacker == nil || e.Defender == nil {
		return nil, fmt.Errorf("resolve %s: missing colony", e.ID)
	}
	if e.Attacker.ID == e.Defender.ID {
		return nil, ErrSameColony
	}
	if len(e.AttackerTokens) == 0 {
		return nil, fmt.Errorf("resolve %s: %w", e.ID, ErrInvalidTokenCount)
	}

	res := &Result{
		Engagement:    e.ID,
		Kind:          e.Kind,
		Weather:       weather.FromSeed(e.Seed.Word()),
		ActiveDefense: e.ActiveDefense(),
	}

	attackerBase := TotalPower(e.AttackerTokens)
	defenderBase := e.AutoDefense
	if res.ActiveDefense {
		defenderBase = TotalPower(e.DefenderTokens)
	}

	attackerBase = ApplyTeamSynergyBonus(e.Attacker, attackerBase)
	defenderBase = ApplyTeamSynergyBonus(e.Defender, defenderBase)
	res.AttackerBase, res.DefenderBase = attackerBase, defenderBase

	res.AttackerPower = r.attackerPower(ctx, e, res)
	res.DefenderPower = r.defenderPower(ctx, e, res)

	res.FinalAttacker, res.FinalDefender = ApplySiegeRandomness(res.AttackerPower, res.DefenderPower, e.Seed)
	res.AttackerWon = res.FinalAttacker > res.FinalDefender

	if e.Territory != nil {
		res.Damage = TerritoryDamage(res.FinalAttacker, res.FinalDefender, e.AttackerStake)
	}

	if res.AttackerWon {
		res.StakeLoss = StakeLoss(e.Defender.Stake(), res.ActiveDefense)
		res.WinnerPoints, res.LoserPoints = SeasonPoints(e.AttackerStake, e.DefenderStake, false, res.ActiveDefense)
	} else {
		res.StakeLoss = amountOrZero(e.AttackerStake)
		res.WinnerPoints, res.LoserPoints = SeasonPoints(e.DefenderStake, e.AttackerStake, res.ActiveDefense, false)
	}

	slog.Debug("engagement resolved",
		"engagement", e.ID,
		"kind", e.Kind,
		"weather", res.Weather,
		"attacker", e.Attacker.ID,
		"defender", e.Defender.ID,
		"attacker_power", res.FinalAttacker,
		"defender_power", res.FinalDefender,
		"attacker_won", res.AttackerWon,
	)
	return res, nil
}

func (r *Resolver) attackerPower(ctx context.Context, e *Engagement, res *Result) uint64 {
	base := res.AttackerBase
	mods := r.modifiers()

	res.StakeBonusPct = StakeBonus(e.AttackerStake, e.DefenderStake, e.Kind == KindRaid)
	var territory colony.TerritoryID
	if e.Territory != nil {
		territory = e.Territory.ID
	}
	res.ScoutingPct = ScoutingBonus(e.Scouting, e.Attacker.ID, e.Defender.ID, territory, e.Now)

	power := base + base*res.StakeBonusPct/100
	power += AdditionalBattlePower(e.Attacker, e.AttackerTerritories, base, true, mods, e.Now)
	power += base * res.ScoutingPct / 100

	if r.Agg != nil {
		res.DebtPenalty = r.Agg.DebtPenalty(ctx, e.Attacker, base)
	}
	if power > res.DebtPenalty {
		power -= res.DebtPenalty
	}
	return power
}

func (r *Resolver) defenderPower(ctx context.Context, e *Engagement, res *Result) uint64 {
	base := res.DefenderBase
	mods := r.modifiers()

	power := base
	if e.Territory != nil {
		power += base * uint64(e.Territory.FortificationLevel) * FortificationPctPerLevel / 100
		power += base * HomeFieldPct / 100
	}
	power += AdditionalBattlePower(e.Defender, e.DefenderTerritories, base, false, mods, e.Now)

	if r.Agg != nil {
		power += r.Agg.ApplyAllianceBonuses(ctx, base, e.Defender.ID, e.Territory != nil) - base
	}
	if res.ActiveDefense {
		power += base * ActiveDefensePowerPct / 100
	}
	return power
}

func (r *Resolver) modifiers() BattleModifiers {
	if r.Agg == nil {
		return DefaultModifiers()
	}
	return r.Agg.Modifiers
}

// TerritoryDamage is the damage one siege deals on the 0–100 territory scale,
// always within [MinTerritoryDamage, MaxTerritoryDamage].
func TerritoryDamage(attack, defense uint64, stake *big.Int) uint64 {
	damage := uint64(MinTerritoryDamage)
	if attack > defense {
		damage = 100 * (attack - defense) / (attack + 1)
	}

	stakeUnits := new(big.Int)
	if stake != nil && stake.Sign() > 0 {
		stakeUnits.Quo(stake, tokenUnit)
	}
	if stakeUnits.Cmp(big.NewInt(MaxStakeDamage)) >= 0 {
		damage += MaxStakeDamage
	} else {
		damage += stakeUnits.Uint64()
	}

	return max(MinTerritoryDamage, min(damage, MaxTerritoryDamage))
}

// StakeLoss is what a beaten defender loses from its defensive stake.
// Passive defenders lose more.
func StakeLoss(defensiveStake *big.Int, activeDefense bool) *big.Int {
	pct := int64(PassiveStakeLossPct)
	if activeDefense {
		pct = ActiveStakeLossPct
	}
	loss := new(big.Int).Mul(amountOrZero(defensiveStake), big.NewInt(pct))
	return loss.Quo(loss, big.NewInt(100))
}

// SeasonPoints returns winner and loser points. Outstaking the loser earns up to
// MaxStakeRatioPoints; an active defender earns up to MaxActiveDefensePts when it
// wins and ActiveLoserPoints when it loses.
func SeasonPoints(winnerStake, loserStake *big.Int, winnerActive, loserActive bool) (winner, loser uint64) {
	winner = WinnerPoints
	if loserStake != nil && loserStake.Sign() > 0 {
		if ratio := stakeRatio(winnerStake, loserStake); ratio > 100 {
			winner += min(MaxStakeRatioPoints, (ratio-100)/10)
		}
	}
	if winnerActive {
		// Attacker and defender stakes are swapped here: the winner defended.
		winner += min(MaxActiveDefensePts, ActiveDefenseBonus(loserStake, winnerStake, true))
	}

	loser = LoserPoints
	if loserActive {
		loser += ActiveLoserPoints
	}
	return winner, loser
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
