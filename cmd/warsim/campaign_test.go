package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/talgya/colony-wars/internal/colony"
	"github.com/talgya/colony-wars/internal/config"
	"github.com/talgya/colony-wars/internal/engine"
	"github.com/talgya/colony-wars/internal/entropy"
	"github.com/talgya/colony-wars/internal/persistence"
	"github.com/talgya/colony-wars/internal/world"
)

func testCampaign(t *testing.T, db *persistence.DB) (*campaign, *engine.Engine) {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.MapRadius = 6

	c := newCampaign(cfg, db)
	if err := c.setup(context.Background(), world.GenConfig{Radius: cfg.MapRadius, Spacing: cfg.MapSpacing, Seed: cfg.Seed}); err != nil {
		t.Fatalf("setup returned error: %v", err)
	}
	c.svc = newService(cfg, db, entropy.Fixed{3}, c.now)

	eng := engine.NewEngine()
	eng.Round = c.resumeRound()
	eng.RoundsPerSeason = cfg.RoundsPerSeason
	eng.OnRound = c.playRound
	eng.OnSeason = c.closeSeason
	return c, eng
}

func TestCampaignPlaysSeason(t *testing.T) {
	ctx := context.Background()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "warfare.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	c, eng := testCampaign(t, db)
	if len(c.colonies) != 6 {
		t.Fatalf("expected 6 colonies, got %d", len(c.colonies))
	}
	if err := eng.Run(ctx, 4); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	fought, err := db.BattleCount(ctx, 1)
	if err != nil {
		t.Fatalf("BattleCount returned error: %v", err)
	}
	if fought == 0 || int64(fought) != c.battles.Load() {
		t.Fatalf("expected stored battles to match %d fought, got %d", c.battles.Load(), fought)
	}

	board, err := db.Leaderboard(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Leaderboard returned error: %v", err)
	}
	if len(board) == 0 {
		t.Fatal("expected season 1 standings")
	}

	next, err := db.Season(ctx, 2)
	if err != nil {
		t.Fatalf("expected season 2 to be open: %v", err)
	}
	if next.PrizePool.Sign() != 0 {
		t.Fatalf("expected an empty prize pool for season 2, got %s", next.PrizePool)
	}
	for _, id := range c.colonies {
		ok, err := db.SeasonRegistered(ctx, 2, id)
		if err != nil || !ok {
			t.Fatalf("expected %s registered for season 2, got %v %v", id, ok, err)
		}
		if owner, err := db.ColonyOwner(ctx, id); err != nil || owner != c.creators[id] {
			t.Fatalf("expected %s owned by %s, got %q (%v)", id, c.creators[id], owner, err)
		}
	}

	// Expedition tokens are back once the round ends.
	for id, refs := range c.members {
		for _, ref := range refs {
			busy, err := db.InActiveBattle(ctx, ref)
			if err != nil || busy {
				t.Fatalf("token %d of %s still busy (%v)", ref.Token, id, err)
			}
		}
	}
}

func TestCampaignResumes(t *testing.T) {
	ctx := context.Background()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "warfare.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	_, eng := testCampaign(t, db)
	if err := eng.Run(ctx, 2); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	c, eng := testCampaign(t, db)
	if eng.Round != 2 {
		t.Fatalf("expected to resume after round 2, got %d", eng.Round)
	}
	if len(c.colonies) != 6 || len(c.members[colony.ID("colony-01")]) != 8 {
		t.Fatalf("expected stored colonies and rosters, got %d colonies", len(c.colonies))
	}
	if err := eng.Run(ctx, 2); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, err := db.Season(ctx, 2); err != nil {
		t.Fatalf("expected season 2 to open after round 4: %v", err)
	}
}
