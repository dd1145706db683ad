package warfare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/colony-wars/internal/colony"
	"github.com/talgya/colony-wars/internal/entropy"
)

// MaxBattleTokens bounds how many tokens one side may commit.
const MaxBattleTokens = 10

// ErrTerritoryNotHeld is returned when a siege targets a territory the defender does not own.
var ErrTerritoryNotHeld = errors.New("territory not held by defender")

// Settlement is the full set of writes one resolution produces. The store
// applies it in a single transaction.
type Settlement struct {
	ID        uuid.UUID
	Kind      string
	Season    colony.SeasonID
	At        time.Time
	Colonies  []*colony.Colony     // Overwrite these records
	Scores    map[colony.ID]uint64 // Add to season scores
	PrizePool *big.Int             // Add to season prize pool
	Territory colony.TerritoryID
	Damage    uint64 // Add to territory damage
	Payouts   []Payout
	Report    any // JSON-encodable battle report
}

// EngageRequest commits both sides of a raid or siege.
type EngageRequest struct {
	Kind      Kind
	Season    colony.SeasonID
	Attacker  colony.ID
	Defender  colony.ID
	Territory colony.TerritoryID // Required for sieges

	AttackerCaller colony.Address
	DefenderCaller colony.Address // Ignored when DefenderTokens is empty

	AttackerStake *big.Int
	DefenderStake *big.Int // Replaced by the defensive stake when DefenderTokens is empty

	AttackerTokens []TokenRef
	DefenderTokens []TokenRef
}

// ForfeitRequest settles a battle nobody fought. The forfeiting side must be
// called by its controller: the attacker for ForfeitAttacker, the defender for
// ForfeitDefender, and both for ForfeitMutual.
type ForfeitRequest struct {
	Kind      ForfeitKind
	Season    colony.SeasonID
	Attacker  colony.ID
	Defender  colony.ID
	Territory colony.TerritoryID

	AttackerCaller colony.Address
	DefenderCaller colony.Address

	AttackerStake *big.Int
	DefenderStake *big.Int // Capped at the defender's defensive stake
}

// Service wires the engine to its collaborators and commits results.
type Service struct {
	Store     Store
	Registry  Registry
	Roster    Roster
	Stats     StatsProvider
	Treasury  Treasury
	Beacon    entropy.Source
	Resolver  *Resolver
	Selector  *Selector
	Locks     *ColonyLocks
	Cooldowns *Cooldowns
	Now       func() time.Time

	AutoDefenseTokens  int
	AutoDefensePenalty uint64
}

// Engage validates, resolves, and commits one raid or siege.
func (s *Service) Engage(ctx context.Context, req EngageRequest) (*Settlement, *Result, error) {
	now := s.now()

	if err := checkTokenCount(req.AttackerTokens, 1); err != nil {
		return nil, nil, fmt.Errorf("attacker tokens: %w", err)
	}
	if err := checkTokenCount(req.DefenderTokens, 0); err != nil {
		return nil, nil, fmt.Errorf("defender tokens: %w", err)
	}
	if req.Kind == KindSiege && req.Territory == 0 {
		return nil, nil, fmt.Errorf("siege without territory: %w", ErrTerritoryNotHeld)
	}

	release, err := s.Cooldowns.Reserve(req.Attacker, now)
	if err != nil {
		return nil, nil, fmt.Errorf("colony %s: %w", req.Attacker, err)
	}
	committed := false
	defer func() {
		if !committed {
			release()
		}
	}()

	unlock := s.Locks.Lock(req.Attacker, req.Defender)
	defer unlock()

	e, err := s.buildEngagement(ctx, req, now)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.Resolver.Resolve(ctx, e)
	if err != nil {
		return nil, nil, err
	}

	st := s.settleBattle(e, res)
	if err := s.Store.Commit(ctx, st); err != nil {
		return nil, nil, fmt.Errorf("commit %s: %w", st.ID, err)
	}
	committed = true

	winner := res.Winner(e)
	slog.Info("battle settled",
		"battle", st.ID,
		"kind", e.Kind,
		"attacker", e.Attacker.ID,
		"defender", e.Defender.ID,
		"winner", winner.ID,
		"weather", res.Weather.Describe(),
		"stake_loss", humanize.BigComma(res.StakeLoss),
		"damage", res.Damage,
	)

	if err := s.pay(ctx, st); err != nil {
		return st, res, err
	}
	return st, res, nil
}

func (s *Service) buildEngagement(ctx context.Context, req EngageRequest, now time.Time) (*Engagement, error) {
	attacker, err := s.Store.Colony(ctx, req.Attacker)
	if err != nil {
		return nil, fmt.Errorf("load attacker: %w", err)
	}
	defender, err := s.Store.Colony(ctx, req.Defender)
	if err != nil {
		return nil, fmt.Errorf("load defender: %w", err)
	}

	agg := s.Resolver.Agg
	if err := agg.AuthorizeForColony(req.AttackerCaller, attacker, defender); err != nil {
		return nil, err
	}
	if len(req.DefenderTokens) > 0 {
		if err := agg.AuthorizeForColony(req.DefenderCaller, defender, attacker); err != nil {
			return nil, err
		}
	}

	e := &Engagement{
		ID:            uuid.New(),
		Kind:          req.Kind,
		Season:        req.Season,
		Attacker:      attacker,
		Defender:      defender,
		AttackerStake: amountOrZero(req.AttackerStake),
		DefenderStake: amountOrZero(req.DefenderStake),
		Now:           now,
	}
	// Nobody on the defending side signed a passive defense, so the request
	// cannot name its stake.
	if len(req.DefenderTokens) == 0 {
		e.DefenderStake = new(big.Int).Set(defender.Stake())
	}

	if req.Territory != 0 {
		t, err := s.Store.Territory(ctx, req.Territory)
		if err != nil {
			return nil, fmt.Errorf("load territory: %w", err)
		}
		if t.Owner != defender.ID {
			return nil, fmt.Errorf("territory %d: %w", t.ID, ErrTerritoryNotHeld)
		}
		e.Territory = t
	}

	if e.AttackerTokens, err = s.committedStats(ctx, attacker, defender, req.AttackerTokens); err != nil {
		return nil, fmt.Errorf("attacker: %w", err)
	}
	if e.DefenderTokens, err = s.committedStats(ctx, defender, attacker, req.DefenderTokens); err != nil {
		return nil, fmt.Errorf("defender: %w", err)
	}

	if !e.ActiveDefense() {
		owner, err := s.Registry.ColonyOwner(ctx, defender.ID)
		if err != nil {
			return nil, fmt.Errorf("defender owner: %w", err)
		}
		auto, err := s.Selector.AutoDefense(ctx, s.Stats, defender, owner, req.Season, s.AutoDefenseTokens, s.AutoDefensePenalty)
		if err != nil {
			return nil, fmt.Errorf("auto-defense: %w", err)
		}
		e.AutoDefense = auto.Power
	}

	if e.AttackerTerritories, err = s.Registry.TerritoryCount(ctx, attacker.ID); err != nil {
		return nil, fmt.Errorf("attacker territories: %w", err)
	}
	if e.DefenderTerritories, err = s.Registry.TerritoryCount(ctx, defender.ID); err != nil {
		return nil, fmt.Errorf("defender territories: %w", err)
	}
	if e.Scouting, err = s.Store.ScoutReports(ctx, attacker.ID, defender.ID); err != nil {
		return nil, fmt.Errorf("scout reports: %w", err)
	}

	e.Seed = DeriveSeed(s.Beacon.Beacon(), now,
		string(attacker.ID), string(defender.ID), strconv.FormatUint(uint64(req.Territory), 10))
	return e, nil
}

// committedStats verifies a committed token list and fetches its stats.
func (s *Service) committedStats(ctx context.Context, own, opposing *colony.Colony, refs []TokenRef) ([]TokenStats, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	for _, ref := range refs {
		member, err := s.Roster.IsMember(ctx, own.ID, ref)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if !member {
			return nil, fmt.Errorf("token %d/%d: %w", ref.Collection, ref.Token, ErrTokensNoLongerInColony)
		}
		busy, err := s.Roster.InActiveBattle(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("check availability: %w", err)
		}
		if busy {
			return nil, fmt.Errorf("token %d/%d: %w", ref.Collection, ref.Token, ErrTokenInActiveBattle)
		}
	}
	if err := s.Resolver.Agg.CheckTokensForWarfareConflict(ctx, refs, opposing); err != nil {
		return nil, err
	}

	stats, err := s.Stats.TokenStats(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("token stats: %w", err)
	}
	if len(stats) != len(refs) {
		return nil, fmt.Errorf("got %d stats for %d tokens: %w", len(stats), len(refs), ErrInvalidTokenCount)
	}
	return stats, nil
}

// settleBattle turns a result into overwrites and increments. The loser's
// stake loss is paid to the winner.
func (s *Service) settleBattle(e *Engagement, res *Result) *Settlement {
	attacker, defender := e.Attacker.Clone(), e.Defender.Clone()
	decay := s.Resolver.modifiers().WinStreakDecay

	winner, loser := attacker, defender
	if !res.AttackerWon {
		winner, loser = defender, attacker
	}
	RecordWin(winner, decay, e.Now)
	RecordDefeat(loser, e.Season, e.Now)

	if res.AttackerWon {
		loss := new(big.Int).Set(res.StakeLoss)
		if loss.Cmp(defender.DefensiveStake) > 0 {
			loss.Set(defender.DefensiveStake)
		}
		defender.DefensiveStake.Sub(defender.DefensiveStake, loss)
		defender.Losses.Add(defender.Losses, loss)
	} else {
		attacker.Losses.Add(attacker.Losses, res.StakeLoss)
	}

	st := &Settlement{
		ID:        e.ID,
		Kind:      e.Kind.String(),
		Season:    e.Season,
		At:        e.Now,
		Colonies:  []*colony.Colony{attacker, defender},
		Scores:    map[colony.ID]uint64{winner.ID: res.WinnerPoints, loser.ID: res.LoserPoints},
		PrizePool: new(big.Int),
		Damage:    res.Damage,
		Report:    res,
	}
	if e.Territory != nil {
		st.Territory = e.Territory.ID
	}
	if res.StakeLoss.Sign() > 0 {
		st.Payouts = []Payout{{To: winner.ID, Amount: new(big.Int).Set(res.StakeLoss)}}
	}
	return st
}

// Forfeit settles a forfeited battle.
func (s *Service) Forfeit(ctx context.Context, req ForfeitRequest) (*Settlement, *ForfeitOutcome, error) {
	if _, err := ParseForfeitKind(uint8(req.Kind)); err != nil {
		return nil, nil, err
	}
	now := s.now()

	unlock := s.Locks.Lock(req.Attacker, req.Defender)
	defer unlock()

	attacker, err := s.Store.Colony(ctx, req.Attacker)
	if err != nil {
		return nil, nil, fmt.Errorf("load attacker: %w", err)
	}
	defender, err := s.Store.Colony(ctx, req.Defender)
	if err != nil {
		return nil, nil, fmt.Errorf("load defender: %w", err)
	}

	if err := s.authorizeForfeit(req, attacker, defender); err != nil {
		return nil, nil, err
	}

	defenderStake := amountOrZero(req.DefenderStake)
	if defenderStake.Cmp(defender.Stake()) > 0 {
		defenderStake = new(big.Int).Set(defender.Stake())
	}

	out, err := ResolveForfeit(Forfeit{
		Kind:          req.Kind,
		Territory:     req.Territory != 0,
		Season:        req.Season,
		Attacker:      attacker,
		Defender:      defender,
		AttackerStake: req.AttackerStake,
		DefenderStake: defenderStake,
		Now:           now,
	})
	if err != nil {
		return nil, nil, err
	}

	st := &Settlement{
		ID:        uuid.New(),
		Kind:      "forfeit:" + out.Kind.String(),
		Season:    req.Season,
		At:        now,
		Colonies:  []*colony.Colony{out.Attacker, out.Defender},
		Scores:    map[colony.ID]uint64{out.Attacker.ID: out.AttackerScore, out.Defender.ID: out.DefenderScore},
		PrizePool: out.PrizePool,
		Territory: req.Territory,
		Payouts:   out.Payouts,
		Report:    out,
	}
	if err := s.Store.Commit(ctx, st); err != nil {
		return nil, nil, fmt.Errorf("commit %s: %w", st.ID, err)
	}

	slog.Info("forfeit settled",
		"battle", st.ID,
		"kind", out.Kind,
		"attacker", out.Attacker.ID,
		"defender", out.Defender.ID,
		"prize_pool_added", humanize.BigComma(out.PrizePool),
	)

	if err := s.pay(ctx, st); err != nil {
		return st, out, err
	}
	return st, out, nil
}

// authorizeForfeit runs the anti-collusion guard for every side that walks away.
func (s *Service) authorizeForfeit(req ForfeitRequest, attacker, defender *colony.Colony) error {
	agg := s.Resolver.Agg
	if req.Kind == ForfeitAttacker || req.Kind == ForfeitMutual {
		if err := agg.AuthorizeForColony(req.AttackerCaller, attacker, defender); err != nil {
			return err
		}
	}
	if req.Kind == ForfeitDefender || req.Kind == ForfeitMutual {
		if err := agg.AuthorizeForColony(req.DefenderCaller, defender, attacker); err != nil {
			return err
		}
	}
	return nil
}

// pay issues treasury payouts after the settlement is committed.
func (s *Service) pay(ctx context.Context, st *Settlement) error {
	if s.Treasury == nil {
		return nil
	}
	for _, p := range st.Payouts {
		if err := s.Treasury.Pay(ctx, p.To, p.Amount); err != nil {
			return fmt.Errorf("settlement %s: pay %s %s: %w", st.ID, p.To, humanize.BigComma(p.Amount), err)
		}
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func checkTokenCount(refs []TokenRef, minCount int) error {
	if len(refs) < minCount || len(refs) > MaxBattleTokens {
		return fmt.Errorf("%d tokens: %w", len(refs), ErrInvalidTokenCount)
	}
	seen := make(map[TokenRef]bool, len(refs))
	for _, ref := range refs {
		if seen[ref] {
			return fmt.Errorf("duplicate token %d/%d: %w", ref.Collection, ref.Token, ErrInvalidTokenCount)
		}
		seen[ref] = true
	}
	return nil
}
