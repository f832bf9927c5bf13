// Package streak computes streak transitions and point multipliers.
// Everything here is pure; callers own persistence.
package streak

import "time"

// tier maps a minimum consecutive-day count to a point multiplier.
type tier struct {
	minDays    int
	multiplier float64
}

// Ordered highest threshold first so the first match wins.
var tiers = []tier{
	{30, 3.0},
	{14, 2.5},
	{7, 2.0},
	{3, 1.5},
	{0, 1.0},
}

// Multiplier returns the point multiplier for a streak of n consecutive
// days: the multiplier of the highest tier whose threshold is <= n.
func Multiplier(n int) float64 {
	for _, t := range tiers {
		if n >= t.minDays {
			return t.multiplier
		}
	}
	return 1.0
}

// Outcome describes what a completion did to a streak.
type Outcome string

const (
	// OutcomeNone means the day was not fully completed, so the streak
	// was left untouched.
	OutcomeNone Outcome = "none"
	// OutcomeMaintain means the streak already counted today.
	OutcomeMaintain Outcome = "maintain"
	// OutcomeIncrement means the streak grew by one day.
	OutcomeIncrement Outcome = "increment"
	// OutcomeReset means a gap broke the streak and it restarted at 1.
	OutcomeReset Outcome = "reset"
)

// Transition is the result of evaluating a completion against the
// member's current streak state.
type Transition struct {
	Outcome        Outcome
	CurrentStreak  int
	LongestStreak  int
	Multiplier     float64
	LastCompletion *time.Time
}

// Compute evaluates a completion at time now against the member's streak
// state. The streak only moves when every task assigned to the member is
// done for the day (allDoneToday); otherwise the state is reported
// unchanged, including the multiplier derived from the existing streak.
//
// Dates are compared at UTC day granularity: completing twice on the same
// calendar day maintains rather than double-increments, completing on the
// next day increments, and any larger gap (or no prior completion at all)
// resets the streak to 1.
func Compute(currentStreak, longestStreak int, lastCompletion *time.Time, allDoneToday bool, now time.Time) Transition {
	if !allDoneToday {
		return Transition{
			Outcome:        OutcomeNone,
			CurrentStreak:  currentStreak,
			LongestStreak:  longestStreak,
			Multiplier:     Multiplier(currentStreak),
			LastCompletion: lastCompletion,
		}
	}

	today := utcDay(now)
	outcome := OutcomeReset
	newStreak := 1

	if lastCompletion != nil {
		switch last := utcDay(*lastCompletion); {
		case last.Equal(today):
			outcome = OutcomeMaintain
			newStreak = currentStreak
		case last.AddDate(0, 0, 1).Equal(today):
			outcome = OutcomeIncrement
			newStreak = currentStreak + 1
		}
	}

	longest := longestStreak
	if newStreak > longest {
		longest = newStreak
	}

	completedAt := now.UTC()
	return Transition{
		Outcome:        outcome,
		CurrentStreak:  newStreak,
		LongestStreak:  longest,
		Multiplier:     Multiplier(newStreak),
		LastCompletion: &completedAt,
	}
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
