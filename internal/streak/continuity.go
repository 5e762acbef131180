// Package streak evaluates daily streak continuity from elapsed
// calendar days. The evaluator runs once per session start; streak
// increments themselves happen on explicit under-budget submissions.
package streak

import "time"

// Midnight normalizes t to the start of its calendar day, keeping the
// location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of whole calendar days from earlier
// to later, both normalized to midnight first.
func DaysBetween(earlier, later time.Time) int {
	return int(Midnight(later).Sub(Midnight(earlier)).Hours() / 24)
}

// Continue adjusts the streak for a session starting on today.
// Same-day re-entry and a one-day gap preserve the streak; a gap of
// two or more days breaks it. A zero lastLogged means no history and
// leaves the streak alone. The caller is responsible for advancing
// the last-logged date to today afterward.
func Continue(lastLogged time.Time, current int, today time.Time) int {
	if lastLogged.IsZero() {
		return current
	}
	if DaysBetween(lastLogged, today) >= 2 {
		return 0
	}
	return current
}
