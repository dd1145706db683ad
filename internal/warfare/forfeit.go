package warfare

import (
	"fmt"
	"math/big"
	"time"

	"github.com/talgya/colony-wars/internal/colony"
)

// ForfeitKind says who walked away from a battle.
type ForfeitKind uint8

const (
	ForfeitAttacker ForfeitKind = iota + 1
	ForfeitDefender
	ForfeitMutual
)

func (k ForfeitKind) String() string {
	switch k {
	case ForfeitAttacker:
		return "attacker"
	case ForfeitDefender:
		return "defender"
	case ForfeitMutual:
		return "mutual"
	default:
		return "unknown"
	}
}

// ParseForfeitKind maps a wire value onto a ForfeitKind.
func ParseForfeitKind(v uint8) (ForfeitKind, error) {
	k := ForfeitKind(v)
	switch k {
	case ForfeitAttacker, ForfeitDefender, ForfeitMutual:
		return k, nil
	}
	return 0, fmt.Errorf("forfeit kind %d: %w", v, ErrUnknownForfeitKind)
}

// Reputation floors set by forfeits.
const (
	AttackerReputationFloor = 5
	DefenderReputationFloor = 4
)

// forfeitScores holds {territory, colony} score pairs.
var forfeitScores = map[ForfeitKind]struct{ attacker, defender [2]uint64 }{
	ForfeitAttacker: {attacker: [2]uint64{0, 0}, defender: [2]uint64{40, 75}},
	ForfeitDefender: {attacker: [2]uint64{50, 100}, defender: [2]uint64{0, 0}},
	ForfeitMutual:   {attacker: [2]uint64{5, 10}, defender: [2]uint64{15, 25}},
}

// Forfeit is the input to ResolveForfeit.
type Forfeit struct {
	Kind          ForfeitKind
	Territory     bool
	Season        colony.SeasonID
	Attacker      *colony.Colony
	Defender      *colony.Colony
	AttackerStake *big.Int
	DefenderStake *big.Int
	Now           time.Time
}

// Payout is a treasury transfer to compensate a colony.
type Payout struct {
	To     colony.ID `json:"to"`
	Amount *big.Int  `json:"amount"`
}

// ForfeitOutcome carries updated colony copies and the value movements the
// caller must commit together.
type ForfeitOutcome struct {
	Kind          ForfeitKind
	Attacker      *colony.Colony
	Defender      *colony.Colony
	PrizePool     *big.Int
	Payouts       []Payout
	AttackerScore uint64
	DefenderScore uint64
}

// ResolveForfeit applies the consequences of one forfeit. Inputs are not mutated.
func ResolveForfeit(f Forfeit) (*ForfeitOutcome, error) {
	scores, ok := forfeitScores[f.Kind]
	if !ok {
		return nil, fmt.Errorf("forfeit kind %d: %w", f.Kind, ErrUnknownForfeitKind)
	}
	if f.Attacker == nil || f.Defender == nil {
		return nil, fmt.Errorf("forfeit %s: missing colony", f.Kind)
	}
	if f.Attacker.ID == f.Defender.ID {
		return nil, ErrSameColony
	}

	idx := 1
	if f.Territory {
		idx = 0
	}
	out := &ForfeitOutcome{
		Kind:          f.Kind,
		Attacker:      f.Attacker.Clone(),
		Defender:      f.Defender.Clone(),
		PrizePool:     new(big.Int),
		AttackerScore: scores.attacker[idx],
		DefenderScore: scores.defender[idx],
	}
	attackerStake := amountOrZero(f.AttackerStake)
	defenderStake := amountOrZero(f.DefenderStake)

	switch f.Kind {
	case ForfeitAttacker:
		penalty := new(big.Int).Set(attackerStake)
		if !f.Territory {
			penalty.Rsh(penalty, 1)
		}
		out.Attacker.Losses.Add(out.Attacker.Losses, attackerStake)
		out.Attacker.Losses.Add(out.Attacker.Losses, penalty)
		out.PrizePool.Add(out.PrizePool, penalty)
		out.Payouts = append(out.Payouts, Payout{To: out.Defender.ID, Amount: new(big.Int).Set(attackerStake)})
		raiseReputation(out.Attacker, AttackerReputationFloor)
		raiseReputation(out.Defender, DefenderReputationFloor)
		RecordDefeat(out.Attacker, f.Season, f.Now)

	case ForfeitDefender:
		penalty := takeDefenderPenalty(out.Defender, f.Territory)
		payout := new(big.Int).Add(defenderStake, penalty)
		out.Payouts = append(out.Payouts, Payout{To: out.Attacker.ID, Amount: payout})
		raiseReputation(out.Defender, DefenderReputationFloor)
		RecordDefeat(out.Defender, f.Season, f.Now)

	case ForfeitMutual:
		penalty := takeDefenderPenalty(out.Defender, f.Territory)
		out.Attacker.Losses.Add(out.Attacker.Losses, attackerStake)
		out.Defender.Losses.Add(out.Defender.Losses, defenderStake)
		out.PrizePool.Add(out.PrizePool, attackerStake)
		out.PrizePool.Add(out.PrizePool, defenderStake)
		out.PrizePool.Add(out.PrizePool, penalty)
		raiseReputation(out.Attacker, AttackerReputationFloor)
		raiseReputation(out.Defender, DefenderReputationFloor)
		RecordDefeat(out.Attacker, f.Season, f.Now)
		RecordDefeat(out.Defender, f.Season, f.Now)
	}

	return out, nil
}

// takeDefenderPenalty removes 1/3 (territory) or 1/4 (colony) of the defensive
// stake and books it as a loss. Returns the amount taken.
func takeDefenderPenalty(c *colony.Colony, territory bool) *big.Int {
	div := int64(4)
	if territory {
		div = 3
	}
	penalty := new(big.Int).Quo(c.DefensiveStake, big.NewInt(div))
	if c.DefensiveStake.Cmp(penalty) < 0 {
		return new(big.Int)
	}
	c.DefensiveStake.Sub(c.DefensiveStake, penalty)
	c.Losses.Add(c.Losses, penalty)
	return penalty
}

func raiseReputation(c *colony.Colony, floor uint8) {
	if c.Reputation < floor {
		c.Reputation = floor
	}
}
