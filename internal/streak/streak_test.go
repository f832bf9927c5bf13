package streak

import (
	"testing"
	"time"
)

func TestMultiplierTiers(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 1.0},
		{3, 1.5},
		{6, 1.5},
		{7, 2.0},
		{13, 2.0},
		{14, 2.5},
		{29, 2.5},
		{30, 3.0},
		{365, 3.0},
	}
	for _, tt := range tests {
		if got := Multiplier(tt.days); got != tt.want {
			t.Errorf("Multiplier(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestComputeNotAllDone(t *testing.T) {
	yesterday := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tr := Compute(6, 10, &yesterday, false, now)

	if tr.Outcome != OutcomeNone {
		t.Errorf("outcome = %v, want none", tr.Outcome)
	}
	if tr.CurrentStreak != 6 {
		t.Errorf("current streak = %d, want unchanged 6", tr.CurrentStreak)
	}
	if tr.Multiplier != 1.5 {
		t.Errorf("multiplier = %v, want 1.5 from existing streak", tr.Multiplier)
	}
	if tr.LastCompletion == nil || !tr.LastCompletion.Equal(yesterday) {
		t.Errorf("last completion mutated: %v", tr.LastCompletion)
	}
}

func TestComputeIncrement(t *testing.T) {
	yesterday := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)

	tr := Compute(6, 6, &yesterday, true, now)

	if tr.Outcome != OutcomeIncrement {
		t.Errorf("outcome = %v, want increment", tr.Outcome)
	}
	if tr.CurrentStreak != 7 {
		t.Errorf("current streak = %d, want 7", tr.CurrentStreak)
	}
	if tr.LongestStreak != 7 {
		t.Errorf("longest streak = %d, want 7", tr.LongestStreak)
	}
	if tr.Multiplier != 2.0 {
		t.Errorf("multiplier = %v, want 2.0", tr.Multiplier)
	}
}

func TestComputeMaintainSameDay(t *testing.T) {
	earlier := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

	tr := Compute(4, 9, &earlier, true, now)

	if tr.Outcome != OutcomeMaintain {
		t.Errorf("outcome = %v, want maintain", tr.Outcome)
	}
	if tr.CurrentStreak != 4 {
		t.Errorf("current streak = %d, want unchanged 4", tr.CurrentStreak)
	}
	if tr.LongestStreak != 9 {
		t.Errorf("longest streak = %d, want unchanged 9", tr.LongestStreak)
	}
}

func TestComputeResetAfterGap(t *testing.T) {
	lastWeek := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tr := Compute(12, 12, &lastWeek, true, now)

	if tr.Outcome != OutcomeReset {
		t.Errorf("outcome = %v, want reset", tr.Outcome)
	}
	if tr.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", tr.CurrentStreak)
	}
	if tr.LongestStreak != 12 {
		t.Errorf("longest streak = %d, want preserved 12", tr.LongestStreak)
	}
	if tr.Multiplier != 1.0 {
		t.Errorf("multiplier = %v, want 1.0", tr.Multiplier)
	}
}

func TestComputeFirstCompletion(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tr := Compute(0, 0, nil, true, now)

	if tr.Outcome != OutcomeReset {
		t.Errorf("outcome = %v, want reset", tr.Outcome)
	}
	if tr.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", tr.CurrentStreak)
	}
	if tr.LongestStreak != 1 {
		t.Errorf("longest streak = %d, want 1", tr.LongestStreak)
	}
}

func TestComputeDayBoundaryUTC(t *testing.T) {
	// 23:30 UTC on the 9th vs 00:30 UTC on the 10th is a next-day
	// increment even though less than two hours passed.
	last := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)

	tr := Compute(2, 2, &last, true, now)

	if tr.Outcome != OutcomeIncrement {
		t.Errorf("outcome = %v, want increment", tr.Outcome)
	}
	if tr.CurrentStreak != 3 {
		t.Errorf("current streak = %d, want 3", tr.CurrentStreak)
	}
	if tr.Multiplier != 1.5 {
		t.Errorf("multiplier = %v, want 1.5", tr.Multiplier)
	}
}
