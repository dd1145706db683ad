package warfare

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func forfeitInput(kind ForfeitKind, territory bool) Forfeit {
	return Forfeit{
		Kind:          kind,
		Territory:     territory,
		Season:        4,
		Attacker:      newColony("a", "alice", 0),
		Defender:      newColony("b", "bob", 900),
		AttackerStake: big.NewInt(1000),
		DefenderStake: big.NewInt(300),
		Now:           time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestResolveForfeitAttackerTerritory(t *testing.T) {
	out, err := ResolveForfeit(forfeitInput(ForfeitAttacker, true))
	if err != nil {
		t.Fatalf("ResolveForfeit returned error: %v", err)
	}
	if out.Attacker.Losses.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("expected attacker losses 2000, got %s", out.Attacker.Losses)
	}
	if out.PrizePool.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected prize pool +1000, got %s", out.PrizePool)
	}
	if out.Attacker.Reputation != AttackerReputationFloor || out.Defender.Reputation != DefenderReputationFloor {
		t.Fatalf("expected reputation floors 5/4, got %d/%d", out.Attacker.Reputation, out.Defender.Reputation)
	}
	if out.AttackerScore != 0 || out.DefenderScore != 40 {
		t.Fatalf("expected scores 0/40, got %d/%d", out.AttackerScore, out.DefenderScore)
	}
	if len(out.Payouts) != 1 || out.Payouts[0].To != "b" || out.Payouts[0].Amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected the attacker stake paid to the defender, got %+v", out.Payouts)
	}
	if out.Attacker.Defeat.Count != 1 || out.Attacker.Defeat.Season != 4 {
		t.Fatalf("expected the forfeit recorded as a season-4 loss, got %+v", out.Attacker.Defeat)
	}
}

func TestResolveForfeitAttackerColony(t *testing.T) {
	out, err := ResolveForfeit(forfeitInput(ForfeitAttacker, false))
	if err != nil {
		t.Fatalf("ResolveForfeit returned error: %v", err)
	}
	if out.Attacker.Losses.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("expected attacker losses 1500, got %s", out.Attacker.Losses)
	}
	if out.PrizePool.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected prize pool +500, got %s", out.PrizePool)
	}
	if out.DefenderScore != 75 {
		t.Fatalf("expected defender score 75, got %d", out.DefenderScore)
	}
}

func TestResolveForfeitDefender(t *testing.T) {
	tests := []struct {
		territory bool
		penalty   int64
		score     uint64
	}{
		{true, 300, 50},
		{false, 225, 100},
	}
	for _, tc := range tests {
		out, err := ResolveForfeit(forfeitInput(ForfeitDefender, tc.territory))
		if err != nil {
			t.Fatalf("ResolveForfeit returned error: %v", err)
		}
		wantStake := big.NewInt(900 - tc.penalty)
		if out.Defender.DefensiveStake.Cmp(wantStake) != 0 {
			t.Fatalf("territory=%v: expected defensive stake %s, got %s", tc.territory, wantStake, out.Defender.DefensiveStake)
		}
		if out.Defender.Losses.Cmp(big.NewInt(tc.penalty)) != 0 {
			t.Fatalf("territory=%v: expected losses %d, got %s", tc.territory, tc.penalty, out.Defender.Losses)
		}
		wantPay := big.NewInt(300 + tc.penalty)
		if len(out.Payouts) != 1 || out.Payouts[0].To != "a" || out.Payouts[0].Amount.Cmp(wantPay) != 0 {
			t.Fatalf("territory=%v: expected %s paid to attacker, got %+v", tc.territory, wantPay, out.Payouts)
		}
		if out.AttackerScore != tc.score || out.DefenderScore != 0 {
			t.Fatalf("territory=%v: expected scores %d/0, got %d/%d", tc.territory, tc.score, out.AttackerScore, out.DefenderScore)
		}
		if out.PrizePool.Sign() != 0 {
			t.Fatalf("expected no prize pool change, got %s", out.PrizePool)
		}
	}
}

func TestResolveForfeitMutual(t *testing.T) {
	out, err := ResolveForfeit(forfeitInput(ForfeitMutual, true))
	if err != nil {
		t.Fatalf("ResolveForfeit returned error: %v", err)
	}
	// 1000 + 300 stakes plus a third of the 900 defensive stake.
	if out.PrizePool.Cmp(big.NewInt(1600)) != 0 {
		t.Fatalf("expected prize pool +1600, got %s", out.PrizePool)
	}
	if out.Attacker.Losses.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected attacker losses 1000, got %s", out.Attacker.Losses)
	}
	if out.Defender.Losses.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected defender losses 600, got %s", out.Defender.Losses)
	}
	if out.AttackerScore != 5 || out.DefenderScore != 15 {
		t.Fatalf("expected scores 5/15, got %d/%d", out.AttackerScore, out.DefenderScore)
	}
	if len(out.Payouts) != 0 {
		t.Fatalf("expected no payouts, got %+v", out.Payouts)
	}
	if out.Attacker.Defeat.Count != 1 || out.Defender.Defeat.Count != 1 {
		t.Fatal("expected both sides to record a loss")
	}
}

func TestResolveForfeitDoesNotMutateInputs(t *testing.T) {
	in := forfeitInput(ForfeitMutual, false)
	in.Attacker.Reputation = 9
	if _, err := ResolveForfeit(in); err != nil {
		t.Fatalf("ResolveForfeit returned error: %v", err)
	}
	if in.Defender.DefensiveStake.Cmp(big.NewInt(900)) != 0 || in.Defender.Losses.Sign() != 0 {
		t.Fatal("defender input was mutated")
	}
	if in.Attacker.Losses.Sign() != 0 || in.Attacker.Defeat.Count != 0 {
		t.Fatal("attacker input was mutated")
	}
	if in.AttackerStake.Cmp(big.NewInt(1000)) != 0 {
		t.Fatal("stake input was mutated")
	}
}

func TestResolveForfeitReputationOnlyRises(t *testing.T) {
	in := forfeitInput(ForfeitAttacker, true)
	in.Attacker.Reputation = 9
	out, err := ResolveForfeit(in)
	if err != nil {
		t.Fatalf("ResolveForfeit returned error: %v", err)
	}
	if out.Attacker.Reputation != 9 {
		t.Fatalf("expected reputation to stay 9, got %d", out.Attacker.Reputation)
	}
}

func TestResolveForfeitUnknownKind(t *testing.T) {
	if _, err := ResolveForfeit(forfeitInput(ForfeitKind(9), true)); !errors.Is(err, ErrUnknownForfeitKind) {
		t.Fatalf("expected ErrUnknownForfeitKind, got %v", err)
	}
	if _, err := ParseForfeitKind(0); !errors.Is(err, ErrUnknownForfeitKind) {
		t.Fatalf("expected ErrUnknownForfeitKind for 0, got %v", err)
	}
	if k, err := ParseForfeitKind(3); err != nil || k != ForfeitMutual {
		t.Fatalf("expected mutual, got %v (%v)", k, err)
	}
}
