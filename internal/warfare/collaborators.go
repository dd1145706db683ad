package warfare

import (
	"context"
	"errors"
	"math/big"

	"github.com/talgya/colony-wars/internal/colony"
)

// ErrUnavailable is returned by best-effort collaborators that cannot answer.
// The engine treats it (and any other collaborator error) as a neutral result.
var ErrUnavailable = errors.New("collaborator unavailable")

// TokenRef identifies one token of one collection.
type TokenRef struct {
	Collection uint64 `json:"collection"`
	Token      uint64 `json:"token"`
}

// AllianceBonus is what the alliance collaborator reports for a defending colony.
type AllianceBonus struct {
	HasAlliance         bool
	DefensiveBonusPct   uint64
	ReinforcementTokens uint64
	SharedStakeBonus    uint64
}

// DebtTracker reports outstanding colony debt. Best effort.
type DebtTracker interface {
	CurrentColonyDebt(ctx context.Context, id colony.ID) (*big.Int, error)
}

// AllianceRegistry reports alliance support for a defender. Best effort.
type AllianceRegistry interface {
	AllianceDefensiveBonuses(ctx context.Context, id colony.ID) (AllianceBonus, error)
}

// OwnershipResolver returns the effective controller of a token, following
// staking delegation back to the real owner.
type OwnershipResolver interface {
	EffectiveOwner(ctx context.Context, ref TokenRef) (colony.Address, error)
}

// Treasury moves value from the shared pool to a recipient.
type Treasury interface {
	Pay(ctx context.Context, to colony.ID, amount *big.Int) error
}

// StatsProvider supplies token stats for a batch of tokens, in request order.
type StatsProvider interface {
	TokenStats(ctx context.Context, refs []TokenRef) ([]TokenStats, error)
}

// Registry answers colony registration questions.
type Registry interface {
	PrimaryColony(ctx context.Context, owner colony.Address) (colony.ID, error)
	SeasonRegistered(ctx context.Context, season colony.SeasonID, id colony.ID) (bool, error)
	TerritoryCount(ctx context.Context, id colony.ID) (uint64, error)
	// ColonyOwner returns the address the registry records as controlling the
	// colony, or "" if none. It is kept apart from the colony's creator record.
	ColonyOwner(ctx context.Context, id colony.ID) (colony.Address, error)
}

// Roster answers token membership and availability questions.
type Roster interface {
	IsMember(ctx context.Context, id colony.ID, ref TokenRef) (bool, error)
	InActiveBattle(ctx context.Context, ref TokenRef) (bool, error)
	Members(ctx context.Context, id colony.ID) ([]TokenRef, error)
}

// Store loads the records a battle needs and commits settlements atomically.
type Store interface {
	Colony(ctx context.Context, id colony.ID) (*colony.Colony, error)
	Territory(ctx context.Context, id colony.TerritoryID) (*colony.Territory, error)
	ScoutReports(ctx context.Context, scout, target colony.ID) ([]colony.ScoutReport, error)
	Commit(ctx context.Context, s *Settlement) error
}
