// Package weather maps a battle seed onto a cosmetic battlefield condition.
// Conditions appear in battle reports only; they never change power or damage.
package weather

// Condition is one of four discrete weather bands.
type Condition uint8

const (
	Clear Condition = iota
	Overcast
	Rain
	Storm
)

// FromSeed picks the band from the two lowest-order bits of a seed word.
func FromSeed(word uint64) Condition {
	return Condition(word % 4)
}

// String returns the short band name.
func (c Condition) String() string {
	switch c {
	case Clear:
		return "clear"
	case Overcast:
		return "overcast"
	case Rain:
		return "rain"
	case Storm:
		return "storm"
	default:
		return "unknown"
	}
}

// Describe returns narrative text for battle reports.
func (c Condition) Describe() string {
	switch c {
	case Clear:
		return "clear skies over the battlefield"
	case Overcast:
		return "grey clouds hang low over the lines"
	case Rain:
		return "steady rain churns the ground to mud"
	case Storm:
		return "a storm breaks as the colonies clash"
	default:
		return "fair weather"
	}
}
