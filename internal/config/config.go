// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/colony-wars/internal/warfare"
)

// Config holds every tunable of the warfare simulator.
type Config struct {
	DBPath       string `env:"WARSIM_DB_PATH" envDefault:"data/warfare.db"`
	Seed         int64  `env:"WARSIM_SEED" envDefault:"42"`
	RandomOrgKey string `env:"RANDOM_ORG_API_KEY"`
	LogLevel     string `env:"WARSIM_LOG_LEVEL" envDefault:"info"`

	Colonies        int           `env:"WARSIM_COLONIES" envDefault:"6"`
	TokensPerColony int           `env:"WARSIM_TOKENS_PER_COLONY" envDefault:"8"`
	Rounds          uint64        `env:"WARSIM_ROUNDS" envDefault:"8"`
	RoundsPerSeason uint64        `env:"WARSIM_ROUNDS_PER_SEASON" envDefault:"4"`
	RoundInterval   time.Duration `env:"WARSIM_ROUND_INTERVAL" envDefault:"0s"`
	MapRadius       int           `env:"WARSIM_MAP_RADIUS" envDefault:"12"`
	MapSpacing      int           `env:"WARSIM_MAP_SPACING" envDefault:"3"`

	WinStreakBonus uint64        `env:"WARSIM_WIN_STREAK_BONUS" envDefault:"10"`
	TerritoryBonus uint64        `env:"WARSIM_TERRITORY_BONUS" envDefault:"20"`
	DebtPenalty    uint64        `env:"WARSIM_DEBT_PENALTY" envDefault:"15"`
	WinStreakDecay time.Duration `env:"WARSIM_WIN_STREAK_DECAY" envDefault:"72h"`
	ActionCooldown time.Duration `env:"WARSIM_ACTION_COOLDOWN" envDefault:"1h"`

	AutoDefenseTokens  int    `env:"WARSIM_AUTO_DEFENSE_TOKENS" envDefault:"5"`
	AutoDefensePenalty uint64 `env:"WARSIM_AUTO_DEFENSE_PENALTY" envDefault:"20"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.AutoDefensePenalty > 100:
		return fmt.Errorf("auto-defense penalty %d%% above 100%%", c.AutoDefensePenalty)
	case c.AutoDefenseTokens < 0 || c.AutoDefenseTokens > warfare.MaxBattleTokens:
		return fmt.Errorf("auto-defense tokens %d outside 0..%d", c.AutoDefenseTokens, warfare.MaxBattleTokens)
	case c.Colonies < 2:
		return fmt.Errorf("need at least 2 colonies, got %d", c.Colonies)
	case c.TokensPerColony < 1:
		return fmt.Errorf("need at least 1 token per colony, got %d", c.TokensPerColony)
	case c.RoundsPerSeason == 0:
		return fmt.Errorf("rounds per season must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Modifiers returns the admin-set battle rates.
func (c Config) Modifiers() warfare.BattleModifiers {
	return warfare.BattleModifiers{
		WinStreakBonus: c.WinStreakBonus,
		TerritoryBonus: c.TerritoryBonus,
		DebtPenalty:    c.DebtPenalty,
		WinStreakDecay: c.WinStreakDecay,
	}
}

// SlogLevel maps LogLevel onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
