package warfare

import (
	"context"
	"math/big"
	"slices"

	"github.com/talgya/colony-wars/internal/colony"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), tokenUnit)
}

func newColony(id, creator string, stake int64) *colony.Colony {
	return &colony.Colony{
		ID:             colony.ID(id),
		Creator:        colony.Address(creator),
		DefensiveStake: big.NewInt(stake),
		Losses:         new(big.Int),
	}
}

// plainTokens returns n tokens of exactly BasePower each.
func plainTokens(n int) []TokenStats {
	out := make([]TokenStats, n)
	for i := range out {
		out[i] = TokenStats{Variant: 1}
	}
	return out
}

func refs(collection uint64, ids ...uint64) []TokenRef {
	out := make([]TokenRef, len(ids))
	for i, id := range ids {
		out[i] = TokenRef{Collection: collection, Token: id}
	}
	return out
}

type fakeDebt struct {
	debt *big.Int
	err  error
}

func (f fakeDebt) CurrentColonyDebt(context.Context, colony.ID) (*big.Int, error) {
	return f.debt, f.err
}

type fakeAlliance struct {
	bonus AllianceBonus
	err   error
}

func (f fakeAlliance) AllianceDefensiveBonuses(context.Context, colony.ID) (AllianceBonus, error) {
	return f.bonus, f.err
}

type fakeOwners map[TokenRef]colony.Address

func (f fakeOwners) EffectiveOwner(_ context.Context, ref TokenRef) (colony.Address, error) {
	return f[ref], nil
}

type fakeRoster struct {
	members map[colony.ID][]TokenRef
	busy    map[TokenRef]bool
}

func (f *fakeRoster) IsMember(_ context.Context, id colony.ID, ref TokenRef) (bool, error) {
	return slices.Contains(f.members[id], ref), nil
}

func (f *fakeRoster) InActiveBattle(_ context.Context, ref TokenRef) (bool, error) {
	return f.busy[ref], nil
}

func (f *fakeRoster) Members(_ context.Context, id colony.ID) ([]TokenRef, error) {
	return slices.Clone(f.members[id]), nil
}

type fakeRegistry struct {
	primary     map[colony.Address]colony.ID
	registered  map[colony.ID]bool
	territories map[colony.ID]uint64
	owners      map[colony.ID]colony.Address
}

func (f *fakeRegistry) PrimaryColony(_ context.Context, owner colony.Address) (colony.ID, error) {
	return f.primary[owner], nil
}

func (f *fakeRegistry) SeasonRegistered(_ context.Context, _ colony.SeasonID, id colony.ID) (bool, error) {
	return f.registered[id], nil
}

func (f *fakeRegistry) TerritoryCount(_ context.Context, id colony.ID) (uint64, error) {
	return f.territories[id], nil
}

func (f *fakeRegistry) ColonyOwner(_ context.Context, id colony.ID) (colony.Address, error) {
	return f.owners[id], nil
}

// fakeStats returns plain tokens unless a ref has explicit stats.
type fakeStats map[TokenRef]TokenStats

func (f fakeStats) TokenStats(_ context.Context, refs []TokenRef) ([]TokenStats, error) {
	out := make([]TokenStats, len(refs))
	for i, ref := range refs {
		s, ok := f[ref]
		if !ok {
			s = TokenStats{Variant: 1}
		}
		out[i] = s
	}
	return out, nil
}

type memStore struct {
	colonies    map[colony.ID]*colony.Colony
	territories map[colony.TerritoryID]*colony.Territory
	scouts      []colony.ScoutReport
	commits     []*Settlement
	commitErr   error
}

func (m *memStore) Colony(_ context.Context, id colony.ID) (*colony.Colony, error) {
	c, ok := m.colonies[id]
	if !ok {
		return nil, ErrUnavailable
	}
	return c.Clone(), nil
}

func (m *memStore) Territory(_ context.Context, id colony.TerritoryID) (*colony.Territory, error) {
	t, ok := m.territories[id]
	if !ok {
		return nil, ErrUnavailable
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ScoutReports(_ context.Context, scout, target colony.ID) ([]colony.ScoutReport, error) {
	var out []colony.ScoutReport
	for _, r := range m.scouts {
		if r.Scout == scout && r.Target == target {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Commit(_ context.Context, s *Settlement) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	for _, c := range s.Colonies {
		m.colonies[c.ID] = c.Clone()
	}
	m.commits = append(m.commits, s)
	return nil
}

type fakeTreasury struct {
	paid map[colony.ID]*big.Int
	err  error
}

func (f *fakeTreasury) Pay(_ context.Context, to colony.ID, amount *big.Int) error {
	if f.err != nil {
		return f.err
	}
	if f.paid == nil {
		f.paid = make(map[colony.ID]*big.Int)
	}
	if f.paid[to] == nil {
		f.paid[to] = new(big.Int)
	}
	f.paid[to].Add(f.paid[to], amount)
	return nil
}
