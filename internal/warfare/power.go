// Package warfare resolves colony battles: token power, bonus curves, modifiers,
// seeded variance, siege damage, forfeits, and auto-defense.
//
// All arithmetic is unsigned integer math with truncating division. Step order
// matters because each step compounds on the previous result.
package warfare

// Power model constants.
const (
	BasePower        = 100
	VariantStep      = 10 // Per variant above 1
	ChargeBonusMax   = 50 // Full charge adds this much
	FatigueThreshold = 50 // Fatigue above this starts costing power
)

// TokenStats are the raw stats of one token, supplied per call.
type TokenStats struct {
	Variant        uint8  `json:"variant"`
	CurrentCharge  uint64 `json:"current_charge"`
	MaxCharge      uint64 `json:"max_charge"`
	FatigueLevel   uint64 `json:"fatigue_level"`
	WearLevel      uint64 `json:"wear_level"`
	AccessoryBonus uint64 `json:"accessory_bonus"` // Percent
	HasValidCharge bool   `json:"has_valid_charge"`
}

// TokenPower computes one token's combat power.
// Order: variant → charge/fatigue → wear → accessory.
func TokenPower(s TokenStats) uint64 {
	power := uint64(BasePower)

	if s.Variant > 1 {
		power += uint64(s.Variant-1) * VariantStep
	}

	if s.HasValidCharge && s.MaxCharge > 0 {
		power += s.CurrentCharge * ChargeBonusMax / s.MaxCharge
		if s.FatigueLevel > FatigueThreshold {
			power = saturatingSub(power, (s.FatigueLevel-FatigueThreshold)/2)
		}
	}

	power = saturatingSub(power, s.WearLevel/2)

	power += power * s.AccessoryBonus / 100
	return power
}

// TotalPower sums TokenPower over a committed token set.
func TotalPower(stats []TokenStats) uint64 {
	var total uint64
	for _, s := range stats {
		total += TokenPower(s)
	}
	return total
}

// saturatingSub subtracts a penalty, but a penalty that would wipe out the
// value halves it instead.
func saturatingSub(value, penalty uint64) uint64 {
	if penalty >= value {
		return value / 2
	}
	return value - penalty
}
