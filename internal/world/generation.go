package world

import (
	"math"
	"math/rand/v2"
	"slices"
	"strconv"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/colony-wars/internal/colony"
)

// MaxFortification is the highest fortification level a territory starts with.
const MaxFortification = 5

// GenConfig holds territory generation parameters.
type GenConfig struct {
	Radius  int   // Hex grid radius
	Spacing int   // Hexes between neighboring territory sites
	Seed    int64 // Random seed (0 = random)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:  12,
		Spacing: 3,
		Seed:    0,
	}
}

// Generate places territories on a lattice of hex sites. Highland sites,
// read from layered simplex noise, start better fortified.
func Generate(cfg GenConfig) []*colony.Territory {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int64()
	}
	spacing := max(cfg.Spacing, 1)

	elevNoise := opensimplex.NewNormalized(seed)

	var sites []HexCoord
	for q := -cfg.Radius; q <= cfg.Radius; q += spacing {
		for r := -cfg.Radius; r <= cfg.Radius; r += spacing {
			c := HexCoord{Q: q, R: r}
			if InRadius(c, cfg.Radius) {
				sites = append(sites, c)
			}
		}
	}
	// Center-out order so low ids sit near the middle of the map.
	slices.SortStableFunc(sites, func(a, b HexCoord) int {
		return Distance(a, HexCoord{}) - Distance(b, HexCoord{})
	})

	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	names := generateNames(rng, len(sites))

	out := make([]*colony.Territory, len(sites))
	for i, c := range sites {
		// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
		x := float64(c.Q) + float64(c.R)*0.5
		y := float64(c.R) * math.Sqrt(3.0) / 2.0
		elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)

		out[i] = &colony.Territory{
			ID:                 colony.TerritoryID(i + 1),
			Name:               names[i],
			Q:                  c.Q,
			R:                  c.R,
			FortificationLevel: fortification(elev),
		}
	}
	return out
}

// fortification maps normalized elevation onto 0..MaxFortification.
func fortification(elev float64) uint8 {
	level := int(elev * (MaxFortification + 1))
	return uint8(min(max(level, 0), MaxFortification))
}

// AssignOwners hands each owner up to perOwner territories, round-robin in id
// order. Territories left over stay unowned.
func AssignOwners(territories []*colony.Territory, owners []colony.ID, perOwner int) {
	if len(owners) == 0 || perOwner <= 0 {
		return
	}
	limit := min(len(territories), len(owners)*perOwner)
	for i := 0; i < limit; i++ {
		territories[i].Owner = owners[i%len(owners)]
	}
}

// octaveNoise samples multi-octave noise, normalized back into [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// generateNames produces procedural territory names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
		"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "River",
	}
	suffixes := []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "wood", "field", "dale", "crest", "vale", "port",
		"town", "bury", "marsh", "well", "brook", "cliff", "moor",
		"ridge", "watch", "fall", "rest", "point", "reach", "helm",
	}
	unique := min(count, len(prefixes)*len(suffixes))

	used := make(map[string]bool)
	names := make([]string, 0, count)

	for len(names) < unique {
		name := prefixes[rng.IntN(len(prefixes))] + suffixes[rng.IntN(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	// Past every two-part combination, reuse names with a counter.
	for i := unique; i < count; i++ {
		names = append(names, names[i%unique]+" "+strconv.Itoa(i/unique+1))
	}

	return names
}
