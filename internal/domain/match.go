package domain

import "time"

// Matches reports whether a slot satisfies every constraint present in the
// preferences. Absent constraints never reject. A slot whose date or time
// does not parse is non-matching, never an error.
func Matches(slot Slot, prefs Preferences) bool {
	date, err := time.Parse(DateLayout, slot.Date)
	if err != nil {
		return false
	}
	clock, err := time.Parse(TimeLayout, slot.Time)
	if err != nil {
		return false
	}

	if prefs.DateRange != nil {
		start, err := time.Parse(DateLayout, prefs.DateRange.Start)
		if err != nil {
			return false
		}
		end, err := time.Parse(DateLayout, prefs.DateRange.End)
		if err != nil {
			return false
		}
		if date.Before(start) || date.After(end) {
			return false
		}
	}

	if prefs.TimeRange != nil {
		start, err := time.Parse(TimeLayout, prefs.TimeRange.Start)
		if err != nil {
			return false
		}
		end, err := time.Parse(TimeLayout, prefs.TimeRange.End)
		if err != nil {
			return false
		}
		if clock.Before(start) || clock.After(end) {
			return false
		}
	}

	if len(prefs.Weekdays) > 0 {
		wd := weekdayIndex(date)
		found := false
		for _, want := range prefs.Weekdays {
			if want == wd {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// weekdayIndex maps time.Weekday (Sunday = 0) onto the subscription
// convention (Monday = 0 .. Sunday = 6).
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
