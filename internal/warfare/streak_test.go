package warfare

import (
	"testing"
	"time"

	"github.com/talgya/colony-wars/internal/colony"
)

func TestValidWinStreakDecayBoundary(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	decay := 72 * time.Hour
	c := newColony("a", "alice", 0)
	c.WinStreak = 3

	tests := []struct {
		name    string
		elapsed time.Duration
		want    uint32
	}{
		{"fresh", time.Minute, 3},
		{"one second before decay", decay - time.Second, 3},
		{"exactly decay", decay, 3},
		{"one second after decay", decay + time.Second, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c.LastWinAt = now.Add(-tc.elapsed)
			if got := ValidWinStreak(c, decay, now); got != tc.want {
				t.Fatalf("ValidWinStreak = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestValidWinStreakCapsAndZero(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	c := newColony("a", "alice", 0)

	c.WinStreak = 12
	if got := ValidWinStreak(c, time.Hour, now); got != 0 {
		t.Fatalf("expected 0 for a colony that never won, got %d", got)
	}

	c.LastWinAt = now
	if got := ValidWinStreak(c, time.Hour, now); got != MaxReportedStreak {
		t.Fatalf("expected cap %d, got %d", MaxReportedStreak, got)
	}

	c.WinStreak = 0
	if got := ValidWinStreak(c, time.Hour, now); got != 0 {
		t.Fatalf("expected 0 for zero streak, got %d", got)
	}
}

func TestRecordWinAndDefeat(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	c := newColony("a", "alice", 0)

	RecordWin(c, time.Hour, now)
	RecordWin(c, time.Hour, now.Add(time.Minute))
	if c.WinStreak != 2 {
		t.Fatalf("expected streak 2, got %d", c.WinStreak)
	}

	// A decayed streak restarts instead of extending.
	RecordWin(c, time.Hour, now.Add(3*time.Hour))
	if c.WinStreak != 1 {
		t.Fatalf("expected decayed streak to restart at 1, got %d", c.WinStreak)
	}

	RecordDefeat(c, 1, now.Add(4*time.Hour))
	if c.WinStreak != 0 {
		t.Fatalf("expected streak reset on defeat, got %d", c.WinStreak)
	}
	if c.Defeat.Count != 1 || c.Defeat.Season != 1 {
		t.Fatalf("expected one season-1 loss, got %+v", c.Defeat)
	}

	RecordWin(c, time.Hour, now.Add(5*time.Hour))
	if c.Defeat.Count != 0 {
		t.Fatalf("expected win to clear consecutive losses, got %d", c.Defeat.Count)
	}
}

func TestConsecutiveLosses(t *testing.T) {
	start := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	var rec colony.LossRecord
	for i := 0; i < 8; i++ {
		rec = RecordLoss(rec, 2, start.Add(time.Duration(i)*time.Hour))
	}
	last := start.Add(7 * time.Hour)

	if rec.Count != 8 {
		t.Fatalf("expected raw count 8, got %d", rec.Count)
	}
	if got := ConsecutiveLosses(rec, 2, last); got != MaxReportedLosses {
		t.Fatalf("expected capped count %d, got %d", MaxReportedLosses, got)
	}
	if got := ConsecutiveLosses(rec, 3, last); got != 0 {
		t.Fatalf("expected other season to read zero, got %d", got)
	}
	if got := ConsecutiveLosses(rec, 2, last.Add(LossResetWindow)); got != MaxReportedLosses {
		t.Fatalf("expected count to survive exactly the reset window, got %d", got)
	}
	if got := ConsecutiveLosses(rec, 2, last.Add(LossResetWindow+time.Second)); got != 0 {
		t.Fatalf("expected idle counter to reset, got %d", got)
	}

	rec = RecordLoss(rec, 2, last.Add(49*time.Hour))
	if rec.Count != 1 {
		t.Fatalf("expected counter to restart after inactivity, got %d", rec.Count)
	}
	rec = RecordLoss(rec, 3, last.Add(50*time.Hour))
	if rec.Count != 1 || rec.Season != 3 {
		t.Fatalf("expected new season to restart counter, got %+v", rec)
	}
}
