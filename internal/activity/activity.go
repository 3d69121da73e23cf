// Package activity computes per-day contribution counts and the current
// consecutive-day streak from raw entry timestamps.
//
// All date arithmetic happens at UTC-midnight granularity to match the
// DATE values produced by the database.
package activity

import "time"

// DayFormat is the calendar-day key format used in count maps.
const DayFormat = "2006-01-02"

// Activity is the contribution-grid payload: per-day counts plus the
// current streak.
type Activity struct {
	Counts map[string]int `json:"counts"`
	Streak int            `json:"streak"`
}

// Compute derives the activity summary from daily counts.
//
// The streak is anchored at today or yesterday (UTC): an entry logged
// yesterday keeps the streak alive until the end of today, so it is not
// lost at midnight. From the most recent anchor, the streak extends
// backward one day at a time until the first day with no entries.
func Compute(counts map[string]int, now time.Time) Activity {
	if counts == nil {
		counts = map[string]int{}
	}

	today := toUTCMidnight(now)
	yesterday := today.AddDate(0, 0, -1)

	anchor := time.Time{}
	switch {
	case counts[today.Format(DayFormat)] > 0:
		anchor = today
	case counts[yesterday.Format(DayFormat)] > 0:
		anchor = yesterday
	}

	streak := 0
	for day := anchor; !anchor.IsZero() && counts[day.Format(DayFormat)] > 0; day = day.AddDate(0, 0, -1) {
		streak++
	}

	return Activity{Counts: counts, Streak: streak}
}

// toUTCMidnight truncates a timestamp to its UTC calendar day.
func toUTCMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
