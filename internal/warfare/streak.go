package warfare

import (
	"time"

	"github.com/talgya/colony-wars/internal/colony"
)

// Reported streak and loss values are capped; stored values are not.
const (
	MaxReportedStreak = 5
	MaxReportedLosses = 5
	LossResetWindow   = 48 * time.Hour
)

// ValidWinStreak returns the colony's usable streak: zero when it never won or
// the last win is older than decay (strictly greater), else min(streak, 5).
func ValidWinStreak(c *colony.Colony, decay time.Duration, now time.Time) uint32 {
	if c == nil || c.WinStreak == 0 || c.LastWinAt.IsZero() {
		return 0
	}
	if now.Sub(c.LastWinAt) > decay {
		return 0
	}
	return min(c.WinStreak, MaxReportedStreak)
}

// RecordWin extends the streak. A decayed streak restarts at one.
func RecordWin(c *colony.Colony, decay time.Duration, now time.Time) {
	if ValidWinStreak(c, decay, now) == 0 {
		c.WinStreak = 0
	}
	c.WinStreak++
	c.LastWinAt = now
	c.Defeat.Count = 0
}

// RecordDefeat breaks the streak and counts the loss for the season.
func RecordDefeat(c *colony.Colony, season colony.SeasonID, now time.Time) {
	c.WinStreak = 0
	c.Defeat = RecordLoss(c.Defeat, season, now)
}

// ConsecutiveLosses returns the capped loss count for season. Counters from
// another season, or idle longer than LossResetWindow, read as zero.
func ConsecutiveLosses(rec colony.LossRecord, season colony.SeasonID, now time.Time) uint32 {
	if rec.Season != season || rec.Count == 0 {
		return 0
	}
	if now.Sub(rec.LastLossAt) > LossResetWindow {
		return 0
	}
	return min(rec.Count, MaxReportedLosses)
}

// RecordLoss returns rec with one more loss at now.
func RecordLoss(rec colony.LossRecord, season colony.SeasonID, now time.Time) colony.LossRecord {
	if ConsecutiveLosses(rec, season, now) == 0 {
		rec.Count = 0
	}
	rec.Season = season
	rec.Count++
	rec.LastLossAt = now
	return rec
}
