// Command warsim runs a colony warfare campaign against a local SQLite store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/colony-wars/internal/config"
	"github.com/talgya/colony-wars/internal/engine"
	"github.com/talgya/colony-wars/internal/entropy"
	"github.com/talgya/colony-wars/internal/persistence"
	"github.com/talgya/colony-wars/internal/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Colony Wars warfare campaign simulator", "seed", cfg.Seed)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Entropy ───────────────────────────────────────────────────────
	client := entropy.NewClient(cfg.RandomOrgKey)
	if client.Enabled() {
		slog.Info("random.org beacon enabled")
	} else {
		slog.Warn("RANDOM_ORG_API_KEY not set, using crypto/rand beacon")
	}
	beacon := entropy.FromClient(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Territories and colonies ─────────────────────────────────────
	c := newCampaign(cfg, db)
	if err := c.setup(ctx, world.GenConfig{Radius: cfg.MapRadius, Spacing: cfg.MapSpacing, Seed: cfg.Seed}); err != nil {
		slog.Error("campaign setup failed", "error", err)
		os.Exit(1)
	}

	c.svc = newService(cfg, db, beacon, c.now)

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Round = c.resumeRound()
	eng.RoundsPerSeason = cfg.RoundsPerSeason
	eng.Interval = cfg.RoundInterval
	eng.OnRound = c.playRound
	eng.OnSeason = c.closeSeason

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	fmt.Printf("\n%d colonies contest %d territories over %d rounds.\n",
		len(c.colonies), c.territories, cfg.Rounds)

	if err := eng.Run(ctx, cfg.Rounds); err != nil {
		slog.Error("campaign stopped", "error", err)
	}

	season := engine.SeasonOf(eng.Round, eng.RoundsPerSeason)
	if s, err := db.Season(ctx, season); err == nil {
		fmt.Printf("Season %d prize pool: %s\n", season, humanize.BigComma(s.PrizePool))
	}
	fmt.Printf("Campaign ended at %s. %d battles fought.\n",
		engine.CampaignTime(eng.Round, eng.RoundsPerSeason), c.battles.Load())
}
