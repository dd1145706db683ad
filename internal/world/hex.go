// Package world lays out the contested territories on a hex grid.
// Uses axial coordinates (q, r) for the hex grid.
package world

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	// Max of the three absolute differences in cube coordinates.
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

// InRadius reports whether the coordinate lies within radius of the origin.
func InRadius(c HexCoord, radius int) bool {
	return Distance(c, HexCoord{}) <= radius
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
