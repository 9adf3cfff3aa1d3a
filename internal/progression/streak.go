package progression

import (
	"math"
	"time"
)

// StreakDecision is the outcome of evaluating a streak against "today".
type StreakDecision struct {
	Streak  int
	Changed bool
	BonusXp int
}

// NextStreak decides what happens to a streak when a workout is completed
// "today". Day difference against the last workout date (date-only, no
// time-of-day):
//   - 0: already worked out today, streak holds, no bonus
//   - 1: streak continues, incremented by one
//   - anything else (or no prior workout): streak resets to a fresh day 1
//
// The bonus is computed against the new streak length.
func NextStreak(current int, lastWorkout *time.Time, today time.Time) StreakDecision {
	if lastWorkout != nil {
		switch DaysBetween(*lastWorkout, today) {
		case 0:
			return StreakDecision{Streak: current, Changed: false}
		case 1:
			next := current + 1
			return StreakDecision{Streak: next, Changed: true, BonusXp: StreakBonusXp(next)}
		}
	}
	return StreakDecision{Streak: 1, Changed: true, BonusXp: StreakBonusXp(1)}
}

// StreakMultiplier returns the milestone multiplier for a streak length.
// Highest threshold wins, not cumulative.
func StreakMultiplier(days int) float64 {
	switch {
	case days >= 365:
		return 3
	case days >= 100:
		return 2.5
	case days >= 30:
		return 2
	case days >= 7:
		return 1.5
	default:
		return 1
	}
}

// StreakBonusXp is floor(10 * days * multiplier).
func StreakBonusXp(days int) int {
	return int(math.Floor(float64(XpPerStreakDay*days) * StreakMultiplier(days)))
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole-day difference between two dates,
// ignoring time-of-day.
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}
