package warfare

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"lukechampine.com/blake3"

	"github.com/talgya/colony-wars/internal/colony"
	"github.com/talgya/colony-wars/internal/entropy"
)

// Seed is a per-battle random seed. Derive it fresh for every resolution; never store it.
type Seed [32]byte

// DeriveSeed hashes the beacon, the timestamp, and the context identifiers.
func DeriveSeed(beacon [32]byte, now time.Time, ids ...string) Seed {
	h := blake3.New(32, nil)
	h.Write(beacon[:])

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(now.UnixNano()))
	h.Write(ts[:])

	for _, id := range ids {
		// Length prefix keeps ("ab","c") and ("a","bc") apart.
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(id)))
		h.Write(n[:])
		h.Write([]byte(id))
	}

	var s Seed
	copy(s[:], h.Sum(nil))
	return s
}

// Word returns the low-order 64 bits of the seed.
func (s Seed) Word() uint64 {
	return binary.BigEndian.Uint64(s[24:])
}

// Variance is drawn from [0, varianceRange); 10 is neutral.
const (
	varianceRange   = 21
	varianceNeutral = 10
)

// ApplySiegeRandomness shifts both powers by an independent draw within ±10%.
func ApplySiegeRandomness(attackerPower, defenderPower uint64, seed Seed) (uint64, uint64) {
	w := seed.Word()
	attackerVar := (w >> 8) % varianceRange
	defenderVar := (w >> 16) % varianceRange
	return applyVariance(attackerPower, attackerVar), applyVariance(defenderPower, defenderVar)
}

func applyVariance(power, v uint64) uint64 {
	if v >= varianceNeutral {
		return power + power*(v-varianceNeutral)/100
	}
	return power - power*(varianceNeutral-v)/100
}

// Selector picks tokens for passive defense.
type Selector struct {
	Roster   Roster
	Registry Registry
	Beacon   entropy.Source
	Now      func() time.Time
}

// SelectAvailableTokens keeps the tokens still in the colony and free to fight,
// then draws up to maxCount of them without replacement using a partial
// Fisher–Yates shuffle.
func (s *Selector) SelectAvailableTokens(ctx context.Context, tokens []TokenRef, id colony.ID, maxCount int) ([]TokenRef, error) {
	eligible := make([]TokenRef, 0, len(tokens))
	seen := make(map[TokenRef]bool, len(tokens))
	for _, ref := range tokens {
		if seen[ref] {
			continue
		}
		seen[ref] = true

		member, err := s.Roster.IsMember(ctx, id, ref)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if !member {
			continue
		}
		busy, err := s.Roster.InActiveBattle(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("check availability: %w", err)
		}
		if !busy {
			eligible = append(eligible, ref)
		}
	}
	if len(eligible) == 0 || maxCount <= 0 {
		return nil, nil
	}

	seed := DeriveSeed(s.Beacon.Beacon(), s.now(), string(id), fmt.Sprint(len(eligible)))
	return shuffleTake(eligible, maxCount, seed), nil
}

// shuffleTake runs k steps of Fisher–Yates over refs (in place) and returns the
// first k. rand.IntN rejects biased draws, so every subset is equally likely.
func shuffleTake(refs []TokenRef, k int, seed Seed) []TokenRef {
	if k > len(refs) {
		k = len(refs)
	}
	rng := rand.New(rand.NewChaCha8(seed))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(refs)-i)
		refs[i], refs[j] = refs[j], refs[i]
	}
	out := make([]TokenRef, k)
	copy(out, refs[:k])
	return out
}

func (s *Selector) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
