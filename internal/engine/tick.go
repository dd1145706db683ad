// Package engine provides the round-based campaign loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRoundsPerSeason is how many battle rounds make up one season.
const DefaultRoundsPerSeason = 4

// Engine drives a campaign forward one battle round at a time.
type Engine struct {
	Round           uint64        // Rounds completed (monotonic, never resets)
	RoundsPerSeason uint64        // Season boundary; 0 means DefaultRoundsPerSeason
	Interval        time.Duration // Pause between rounds; 0 runs flat out

	// Callbacks for each layer, populated during setup.
	OnRound  func(ctx context.Context, round uint64) error  // Every round
	OnSeason func(ctx context.Context, season uint32) error // After the last round of a season
}

// NewEngine creates a campaign engine with default settings.
func NewEngine() *Engine {
	return &Engine{RoundsPerSeason: DefaultRoundsPerSeason}
}

// Run plays rounds until n more have completed, ctx is done, or a callback fails.
func (e *Engine) Run(ctx context.Context, n uint64) error {
	slog.Info("campaign engine started", "round", e.Round, "rounds", n)
	target := e.Round + n

	for e.Round < target {
		if err := e.step(ctx); err != nil {
			return err
		}
		if e.Round == target || e.Interval <= 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.Interval):
		}
	}

	slog.Info("campaign engine stopped", "round", e.Round, "time", CampaignTime(e.Round, e.roundsPerSeason()))
	return nil
}

// step advances the campaign by one round.
func (e *Engine) step(ctx context.Context) error {
	round := e.Round + 1

	if e.OnRound != nil {
		if err := e.OnRound(ctx, round); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
	}
	e.Round = round

	if round%e.roundsPerSeason() == 0 && e.OnSeason != nil {
		season := SeasonOf(round, e.roundsPerSeason())
		if err := e.OnSeason(ctx, season); err != nil {
			return fmt.Errorf("close season %d: %w", season, err)
		}
	}
	return nil
}

func (e *Engine) roundsPerSeason() uint64 {
	if e.RoundsPerSeason == 0 {
		return DefaultRoundsPerSeason
	}
	return e.RoundsPerSeason
}

// SeasonOf returns the 1-based season a 1-based round belongs to.
func SeasonOf(round, perSeason uint64) uint32 {
	if round == 0 {
		return 1
	}
	return uint32((round-1)/perSeason + 1)
}

// CampaignTime returns a human-readable position from a round number.
func CampaignTime(round, perSeason uint64) string {
	if round == 0 {
		return "Season 1, before the first round"
	}
	inSeason := (round-1)%perSeason + 1
	return fmt.Sprintf("Season %d, Round %d of %d", SeasonOf(round, perSeason), inSeason, perSeason)
}
