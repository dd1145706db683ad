package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/colony-wars/internal/colony"
	"github.com/talgya/colony-wars/internal/config"
	"github.com/talgya/colony-wars/internal/engine"
	"github.com/talgya/colony-wars/internal/entropy"
	"github.com/talgya/colony-wars/internal/persistence"
	"github.com/talgya/colony-wars/internal/warfare"
	"github.com/talgya/colony-wars/internal/world"
)

const (
	tokenCollection = 1
	stakingVault    = colony.Address("0xstaking-vault")
	territoriesEach = 2
)

// campaign owns the simulated players that issue battles each round.
type campaign struct {
	cfg config.Config
	db  *persistence.DB
	svc *warfare.Service

	colonies    []colony.ID
	creators    map[colony.ID]colony.Address
	members     map[colony.ID][]warfare.TokenRef
	territories int

	start   time.Time
	clock   atomic.Int64 // Unix nanos of the simulated campaign clock
	battles atomic.Int64
}

func newCampaign(cfg config.Config, db *persistence.DB) *campaign {
	c := &campaign{
		cfg:      cfg,
		db:       db,
		creators: make(map[colony.ID]colony.Address),
		members:  make(map[colony.ID][]warfare.TokenRef),
		start:    time.Now().UTC().Truncate(time.Second),
	}
	c.clock.Store(c.start.UnixNano())
	return c
}

// now is the simulated clock. Each round advances it past the action cooldown
// so every colony may act once per round.
func (c *campaign) now() time.Time {
	return time.Unix(0, c.clock.Load()).UTC()
}

func (c *campaign) advance(round uint64) {
	step := c.cfg.ActionCooldown + time.Minute
	c.clock.Store(c.start.Add(time.Duration(round) * step).UnixNano())
}

// newService wires the battle service with the store behind every collaborator.
func newService(cfg config.Config, db *persistence.DB, beacon entropy.Source, now func() time.Time) *warfare.Service {
	agg := &warfare.Aggregator{Debt: db, Alliances: db, Owners: db, Modifiers: cfg.Modifiers()}
	return &warfare.Service{
		Store:              db,
		Registry:           db,
		Roster:             db,
		Stats:              db,
		Treasury:           db,
		Beacon:             beacon,
		Resolver:           &warfare.Resolver{Agg: agg},
		Selector:           &warfare.Selector{Roster: db, Registry: db, Beacon: beacon, Now: now},
		Locks:              warfare.NewColonyLocks(),
		Cooldowns:          warfare.NewCooldowns(cfg.ActionCooldown),
		Now:                now,
		AutoDefenseTokens:  cfg.AutoDefenseTokens,
		AutoDefensePenalty: cfg.AutoDefensePenalty,
	}
}

func units(n int) *big.Int {
	return new(big.Int).Mul(big.NewInt(int64(n)), big.NewInt(1e18))
}

// setup seeds a fresh world, or picks up the colonies of an existing database.
func (c *campaign) setup(ctx context.Context, gen world.GenConfig) error {
	existing, err := c.db.Colonies(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return c.resume(ctx, existing)
	}

	rng := rand.New(rand.NewPCG(uint64(c.cfg.Seed), 400))
	territories := world.Generate(gen)

	var colonies []*colony.Colony
	for i := 0; i < c.cfg.Colonies; i++ {
		id := colony.ID(fmt.Sprintf("colony-%02d", i+1))
		name := string(id)
		if i < len(territories) {
			name = "House " + territories[i].Name
		}
		col := &colony.Colony{
			ID:             id,
			Name:           name,
			Creator:        colony.Address(fmt.Sprintf("0xplayer%02d", i+1)),
			DefensiveStake: units((i + 1) * 100),
			Losses:         new(big.Int),
			Squad:          colony.SquadPosition{Active: i%2 == 0, Synergy: uint16(rng.IntN(501))},
		}
		colonies = append(colonies, col)
		c.colonies = append(c.colonies, id)
		c.creators[id] = col.Creator
	}

	world.AssignOwners(territories, c.colonies, territoriesEach)
	if err := c.db.SaveTerritories(ctx, territories); err != nil {
		return err
	}
	if err := c.db.SaveColonies(ctx, colonies...); err != nil {
		return err
	}
	c.territories = len(territories)

	var tokens []persistence.Token
	for i, col := range colonies {
		for j := 0; j < c.cfg.TokensPerColony; j++ {
			tok := persistence.Token{
				Ref:    warfare.TokenRef{Collection: tokenCollection, Token: uint64((i+1)*1000 + j)},
				Colony: col.ID,
				Owner:  col.Creator,
				Stats:  randomStats(rng),
			}
			// The first token of every colony sits in the staking vault.
			if j == 0 {
				tok.Owner, tok.StakedBy = stakingVault, col.Creator
			}
			tokens = append(tokens, tok)
			c.members[col.ID] = append(c.members[col.ID], tok.Ref)
		}
		if err := c.db.SetPrimaryColony(ctx, col.Creator, col.ID); err != nil {
			return err
		}
		if err := c.db.SetColonyOwner(ctx, col.ID, col.Creator); err != nil {
			return err
		}
	}
	if err := c.db.SaveTokens(ctx, tokens); err != nil {
		return err
	}

	// One colony carries debt and one has an ally, so both modifiers show up.
	if err := c.db.SetDebt(ctx, c.colonies[0], units(250)); err != nil {
		return err
	}
	ally := warfare.AllianceBonus{HasAlliance: true, DefensiveBonusPct: 10, ReinforcementTokens: 2, SharedStakeBonus: 5}
	if err := c.db.SetAlliance(ctx, c.colonies[len(c.colonies)-1], ally); err != nil {
		return err
	}

	if err := c.openSeason(ctx, 1); err != nil {
		return err
	}
	if err := c.db.SaveMeta("seed", strconv.FormatInt(c.cfg.Seed, 10)); err != nil {
		return err
	}
	slog.Info("world seeded",
		"colonies", len(colonies),
		"tokens", len(tokens),
		"territories", len(territories),
	)
	return nil
}

func (c *campaign) resume(ctx context.Context, existing []*colony.Colony) error {
	for _, col := range existing {
		c.colonies = append(c.colonies, col.ID)
		c.creators[col.ID] = col.Creator
		refs, err := c.db.Members(ctx, col.ID)
		if err != nil {
			return err
		}
		c.members[col.ID] = refs
	}
	territories, err := c.db.Territories(ctx)
	if err != nil {
		return err
	}
	c.territories = len(territories)
	slog.Info("resuming campaign", "colonies", len(existing), "territories", c.territories)
	return nil
}

// resumeRound returns the last round recorded by a previous run.
func (c *campaign) resumeRound() uint64 {
	v, err := c.db.GetMeta("round")
	if err != nil {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		slog.Warn("ignoring stored round", "value", v, "error", err)
		return 0
	}
	return n
}

func randomStats(rng *rand.Rand) warfare.TokenStats {
	maxCharge := uint64(100)
	return warfare.TokenStats{
		Variant:        uint8(1 + rng.IntN(4)),
		CurrentCharge:  rng.Uint64N(maxCharge + 1),
		MaxCharge:      maxCharge,
		FatigueLevel:   rng.Uint64N(100),
		WearLevel:      rng.Uint64N(40),
		AccessoryBonus: uint64(rng.IntN(3) * 5),
		HasValidCharge: rng.IntN(4) != 0,
	}
}

func (c *campaign) openSeason(ctx context.Context, season colony.SeasonID) error {
	perSeason := time.Duration(c.cfg.RoundsPerSeason) * (c.cfg.ActionCooldown + time.Minute)
	if err := c.db.StartSeason(ctx, colony.Season{
		ID:        season,
		PrizePool: new(big.Int),
		StartedAt: c.now(),
		EndsAt:    c.now().Add(perSeason),
	}); err != nil {
		return err
	}
	for _, id := range c.colonies {
		if err := c.db.RegisterForSeason(ctx, season, id); err != nil {
			return fmt.Errorf("register %s for season %d: %w", id, season, err)
		}
	}
	return nil
}

// plan is one battle a pair of colonies will fight this round.
type plan struct {
	engage  *warfare.EngageRequest
	forfeit *warfare.ForfeitRequest
}

// playRound pairs colonies off and fights every pair concurrently. Pairs are
// disjoint, so the colony locks never contend.
func (c *campaign) playRound(ctx context.Context, round uint64) error {
	c.advance(round)
	season := colony.SeasonID(engine.SeasonOf(round, c.cfg.RoundsPerSeason))
	rng := rand.New(rand.NewPCG(uint64(c.cfg.Seed), round))

	held, err := c.heldTerritories(ctx)
	if err != nil {
		return err
	}

	ids := slices.Clone(c.colonies)
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	// One token per colony is away on an expedition and cannot be drafted.
	away := make([]warfare.TokenRef, 0, len(ids))
	available := make(map[colony.ID][]warfare.TokenRef, len(ids))
	for _, id := range ids {
		refs := slices.Clone(c.members[id])
		if len(refs) > 1 {
			k := rng.IntN(len(refs))
			away = append(away, refs[k])
			refs = slices.Delete(refs, k, k+1)
		}
		available[id] = refs
	}
	if err := c.db.SetInBattle(ctx, away, true); err != nil {
		return err
	}
	defer func() {
		if err := c.db.SetInBattle(context.WithoutCancel(ctx), away, false); err != nil {
			slog.Error("failed to return expedition tokens", "error", err)
		}
	}()

	var plans []plan
	for i := 0; i+1 < len(ids); i += 2 {
		attacker, defender := ids[i], ids[i+1]
		if i == 0 && round%3 == 0 {
			plans = append(plans, plan{forfeit: c.planForfeit(rng, round, season, attacker, defender, held)})
			continue
		}
		p := c.planEngagement(rng, season, attacker, defender, available, held)
		if rng.IntN(3) == 0 {
			if err := c.scout(ctx, attacker, defender, p.Territory); err != nil {
				return err
			}
		}
		plans = append(plans, plan{engage: p})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range plans {
		g.Go(func() error { return c.fight(gctx, p) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return c.db.SaveMeta("round", strconv.FormatUint(round, 10))
}

func (c *campaign) heldTerritories(ctx context.Context) (map[colony.ID][]colony.TerritoryID, error) {
	territories, err := c.db.Territories(ctx)
	if err != nil {
		return nil, err
	}
	held := make(map[colony.ID][]colony.TerritoryID)
	for _, t := range territories {
		if t.Owner != "" {
			held[t.Owner] = append(held[t.Owner], t.ID)
		}
	}
	return held, nil
}

func (c *campaign) planEngagement(rng *rand.Rand, season colony.SeasonID, attacker, defender colony.ID,
	available map[colony.ID][]warfare.TokenRef, held map[colony.ID][]colony.TerritoryID) *warfare.EngageRequest {
	req := &warfare.EngageRequest{
		Kind:           warfare.KindRaid,
		Season:         season,
		Attacker:       attacker,
		Defender:       defender,
		AttackerCaller: c.creators[attacker],
		AttackerStake:  units(50 + rng.IntN(450)),
		AttackerTokens: pickTokens(rng, available[attacker], 1+rng.IntN(5)),
	}
	if owned := held[defender]; len(owned) > 0 && rng.IntN(2) == 0 {
		req.Kind = warfare.KindSiege
		req.Territory = owned[rng.IntN(len(owned))]
	}
	// Half the time the defender shows up; otherwise auto-defense takes over.
	if rng.IntN(2) == 0 {
		req.DefenderCaller = c.creators[defender]
		req.DefenderStake = units(rng.IntN(400))
		req.DefenderTokens = pickTokens(rng, available[defender], 1+rng.IntN(5))
	}
	return req
}

func (c *campaign) planForfeit(rng *rand.Rand, round uint64, season colony.SeasonID, attacker, defender colony.ID,
	held map[colony.ID][]colony.TerritoryID) *warfare.ForfeitRequest {
	req := &warfare.ForfeitRequest{
		Kind:           warfare.ForfeitKind(1 + (round/3)%3),
		Season:         season,
		Attacker:       attacker,
		Defender:       defender,
		AttackerCaller: c.creators[attacker],
		DefenderCaller: c.creators[defender],
		AttackerStake:  units(50 + rng.IntN(200)),
		DefenderStake:  units(rng.IntN(200)),
	}
	if owned := held[defender]; len(owned) > 0 {
		req.Territory = owned[0]
	}
	return req
}

func pickTokens(rng *rand.Rand, refs []warfare.TokenRef, n int) []warfare.TokenRef {
	refs = slices.Clone(refs)
	rng.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	return refs[:min(n, len(refs), warfare.MaxBattleTokens)]
}

func (c *campaign) scout(ctx context.Context, scout, target colony.ID, territory colony.TerritoryID) error {
	r := colony.ScoutReport{
		Scout:     scout,
		Target:    target,
		Kind:      colony.ScoutColony,
		ExpiresAt: c.now().Add(c.cfg.ActionCooldown),
	}
	if territory != 0 {
		r.Kind, r.Territory = colony.ScoutTerritory, territory
	}
	return c.db.SaveScoutReport(ctx, r)
}

// fight runs one planned battle. Rule violations are logged and skipped; store
// failures abort the round.
func (c *campaign) fight(ctx context.Context, p plan) error {
	var err error
	if p.forfeit != nil {
		_, _, err = c.svc.Forfeit(ctx, *p.forfeit)
	} else {
		_, _, err = c.svc.Engage(ctx, *p.engage)
	}
	if err == nil {
		c.battles.Add(1)
		return nil
	}
	if rejected(err) {
		slog.Warn("battle rejected", "error", err)
		return nil
	}
	return err
}

func rejected(err error) bool {
	for _, target := range []error{
		warfare.ErrTokensNoLongerInColony,
		warfare.ErrTokenInActiveBattle,
		warfare.ErrInvalidTokenCount,
		warfare.ErrConflictOfInterest,
		warfare.ErrNotAuthorized,
		warfare.ErrSameColony,
		warfare.ErrActionOnCooldown,
		warfare.ErrTerritoryNotHeld,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// closeSeason prints the final standings and opens the next season.
func (c *campaign) closeSeason(ctx context.Context, season uint32) error {
	id := colony.SeasonID(season)
	board, err := c.db.Leaderboard(ctx, id, 10)
	if err != nil {
		return err
	}
	s, err := c.db.Season(ctx, id)
	if err != nil {
		return err
	}
	fought, err := c.db.BattleCount(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("\n── Season %d standings ──\n", season)
	for i, st := range board {
		fmt.Printf("%2d. %-28s %s pts\n", i+1, st.Name, humanize.Comma(int64(st.Points)))
	}
	fmt.Printf("Prize pool: %s  Battles: %d\n", humanize.BigComma(s.PrizePool), fought)

	return c.openSeason(ctx, id+1)
}
