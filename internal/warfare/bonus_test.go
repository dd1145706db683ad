package warfare

import (
	"math/big"
	"testing"
	"time"

	"github.com/talgya/colony-wars/internal/colony"
)

func TestStakeBonusUnopposed(t *testing.T) {
	for _, stake := range []int64{0, 1, 500, 1e9} {
		if got := StakeBonus(big.NewInt(stake), big.NewInt(0), true); got != 25 {
			t.Fatalf("raid with no defender stake: expected 25, got %d", got)
		}
		if got := StakeBonus(big.NewInt(stake), nil, false); got != 15 {
			t.Fatalf("siege with no defender stake: expected 15, got %d", got)
		}
	}
}

func TestStakeBonusCurvePoints(t *testing.T) {
	tests := []struct {
		ratio int64
		raid  uint64
		siege uint64
	}{
		{0, 10, 5},
		{25, 17, 10},
		{50, 25, 15},
		{75, 37, 25},
		{100, 50, 35},
		{200, 75, 55},
		{300, 100, 75},
		{10000, 100, 75},
	}
	def := big.NewInt(100)
	for _, tc := range tests {
		stake := big.NewInt(tc.ratio)
		if got := StakeBonus(stake, def, true); got != tc.raid {
			t.Fatalf("raid ratio %d: got %d, want %d", tc.ratio, got, tc.raid)
		}
		if got := StakeBonus(stake, def, false); got != tc.siege {
			t.Fatalf("siege ratio %d: got %d, want %d", tc.ratio, got, tc.siege)
		}
	}
}

func TestStakeBonusMonotonic(t *testing.T) {
	def := big.NewInt(1000)
	for _, isRaid := range []bool{true, false} {
		prev := uint64(0)
		for stake := int64(0); stake <= 5000; stake += 7 {
			got := StakeBonus(big.NewInt(stake), def, isRaid)
			if got < prev {
				t.Fatalf("raid=%v: bonus dropped from %d to %d at stake %d", isRaid, prev, got, stake)
			}
			prev = got
		}
	}
}

func TestStakeBonusHugeRatioSaturates(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	if got := StakeBonus(huge, big.NewInt(1), true); got != 100 {
		t.Fatalf("expected raid cap 100, got %d", got)
	}
}

func TestActiveDefenseBonus(t *testing.T) {
	tests := []struct {
		name     string
		attacker int64
		defender int64
		active   bool
		want     uint64
	}{
		{"passive", 1000, 100, false, 0},
		{"even stakes", 100, 100, true, 6},
		{"at threshold", 150, 100, true, 6},
		{"above threshold", 250, 100, true, 11},
		{"capped", 10000, 100, true, 18},
		{"no defender stake", 100, 0, true, 18},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ActiveDefenseBonus(big.NewInt(tc.attacker), big.NewInt(tc.defender), tc.active)
			if got != tc.want {
				t.Fatalf("ActiveDefenseBonus = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAdditionalBattlePower(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mods := DefaultModifiers()
	c := newColony("a", "alice", 0)
	c.WinStreak = 9
	c.LastWinAt = now.Add(-time.Hour)

	if got := AdditionalBattlePower(c, 3, 1000, true, mods, now); got != 160 {
		t.Fatalf("attacker: expected 100 streak + 60 territory, got %d", got)
	}
	if got := AdditionalBattlePower(c, 3, 1000, false, mods, now); got != 60 {
		t.Fatalf("defender: expected territory term only, got %d", got)
	}

	c.LastWinAt = now.Add(-mods.WinStreakDecay - time.Second)
	if got := AdditionalBattlePower(c, 0, 1000, true, mods, now); got != 0 {
		t.Fatalf("expected decayed streak to add nothing, got %d", got)
	}
}

func TestScoutingBonus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	colonyIntel := colony.ScoutReport{Scout: "a", Target: "b", Kind: colony.ScoutColony, ExpiresAt: later}
	territoryIntel := colony.ScoutReport{Scout: "a", Target: "b", Kind: colony.ScoutTerritory, Territory: 7, ExpiresAt: later}
	expired := colony.ScoutReport{Scout: "a", Target: "b", Kind: colony.ScoutTerritory, Territory: 7, ExpiresAt: now}

	tests := []struct {
		name      string
		reports   []colony.ScoutReport
		territory colony.TerritoryID
		want      uint64
	}{
		{"none", nil, 7, 0},
		{"colony wide", []colony.ScoutReport{colonyIntel}, 0, 5},
		{"territory wins", []colony.ScoutReport{colonyIntel, territoryIntel}, 7, 8},
		{"territory in raid", []colony.ScoutReport{territoryIntel}, 0, 0},
		{"other territory", []colony.ScoutReport{colonyIntel, territoryIntel}, 8, 5},
		{"expired", []colony.ScoutReport{expired}, 7, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScoutingBonus(tc.reports, "a", "b", tc.territory, now); got != tc.want {
				t.Fatalf("ScoutingBonus = %d, want %d", got, tc.want)
			}
		})
	}

	if got := ScoutingBonus([]colony.ScoutReport{territoryIntel}, "x", "b", 7, now); got != 0 {
		t.Fatalf("expected intel to belong to its scout only, got %d", got)
	}
}
