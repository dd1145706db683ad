package world

import (
	"math/rand/v2"
	"testing"

	"github.com/talgya/colony-wars/internal/colony"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := GenConfig{Radius: 9, Spacing: 3, Seed: 42}
	a := Generate(cfg)
	b := Generate(cfg)
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("expected equal non-empty layouts, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name || a[i].Q != b[i].Q || a[i].R != b[i].R ||
			a[i].FortificationLevel != b[i].FortificationLevel {
			t.Fatalf("territory %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateLayout(t *testing.T) {
	cfg := GenConfig{Radius: 12, Spacing: 3, Seed: 7}
	territories := Generate(cfg)

	ids := make(map[colony.TerritoryID]bool)
	names := make(map[string]bool)
	prev := -1
	for _, tr := range territories {
		c := HexCoord{Q: tr.Q, R: tr.R}
		if !InRadius(c, cfg.Radius) {
			t.Fatalf("territory %d at %+v outside radius", tr.ID, c)
		}
		if tr.FortificationLevel > MaxFortification {
			t.Fatalf("territory %d fortification %d above max", tr.ID, tr.FortificationLevel)
		}
		if ids[tr.ID] || names[tr.Name] {
			t.Fatalf("duplicate territory %d %q", tr.ID, tr.Name)
		}
		ids[tr.ID], names[tr.Name] = true, true
		if d := Distance(c, HexCoord{}); d < prev {
			t.Fatalf("territories not ordered center-out at %d", tr.ID)
		} else {
			prev = d
		}
	}
	if territories[0].ID != 1 || territories[0].Q != 0 || territories[0].R != 0 {
		t.Fatalf("expected territory 1 at the origin, got %+v", territories[0])
	}
}

func TestFortification(t *testing.T) {
	tests := []struct {
		elev float64
		want uint8
	}{
		{0, 0}, {0.1, 0}, {0.2, 1}, {0.5, 3}, {0.99, 5}, {1, 5}, {-0.1, 0},
	}
	for _, tc := range tests {
		if got := fortification(tc.elev); got != tc.want {
			t.Fatalf("fortification(%v) = %d, want %d", tc.elev, got, tc.want)
		}
	}
}

func TestAssignOwners(t *testing.T) {
	territories := Generate(GenConfig{Radius: 6, Spacing: 2, Seed: 3})
	AssignOwners(territories, []colony.ID{"a", "b"}, 2)

	held := make(map[colony.ID]int)
	for _, tr := range territories {
		if tr.Owner != "" {
			held[tr.Owner]++
		}
	}
	if held["a"] != 2 || held["b"] != 2 || len(held) != 2 {
		t.Fatalf("expected two territories each, got %v", held)
	}
}

func TestGenerateNamesBeyondCombinations(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	names := generateNames(rng, 900)
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Fatalf("duplicate name %q", n)
		}
		seen[n] = true
	}
}

func TestDistance(t *testing.T) {
	origin := HexCoord{}
	for _, n := range []HexCoord{{Q: 1}, {Q: 1, R: -1}, {R: -1}, {Q: -1}, {Q: -1, R: 1}, {R: 1}} {
		if Distance(origin, n) != 1 {
			t.Fatalf("neighbor %+v not at distance 1", n)
		}
	}
	if InRadius(HexCoord{Q: 3, R: -4}, 3) {
		t.Fatal("expected (3,-4) outside radius 3")
	}
	if got := Distance(HexCoord{Q: 2, R: -1}, HexCoord{Q: -1, R: 3}); got != 4 {
		t.Fatalf("expected distance 4, got %d", got)
	}
}
