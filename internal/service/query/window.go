package query

import (
	"time"

	"campusevents/internal/domain/event"
)

const endOfDayNanos = 999 * int(time.Millisecond)

// Window resolves a relative time key to an absolute [start, end] pair
// in now's location. ok is false for keys that are not relative time keys.
func Window(key event.FilterKey, now time.Time) (start, end time.Time, ok bool) {
	y, m, d := now.Date()
	loc := now.Location()
	weekday := int(now.Weekday())

	switch key {
	case event.FilterToday:
		return midnight(y, m, d, loc), endOfDay(y, m, d, loc), true

	case event.FilterTomorrow:
		return midnight(y, m, d+1, loc), endOfDay(y, m, d+1, loc), true

	case event.FilterThisWeek:
		// Sunday is 0, so a Sunday call looks a full week ahead.
		daysUntilSunday := 7 - weekday
		return midnight(y, m, d, loc), endOfDay(y, m, d+daysUntilSunday, loc), true

	case event.FilterNextWeek:
		daysUntilNextMonday := (8 - weekday) % 7
		if daysUntilNextMonday == 0 {
			daysUntilNextMonday = 7
		}
		first := d + daysUntilNextMonday
		return midnight(y, m, first, loc), endOfDay(y, m, first+6, loc), true
	}

	return time.Time{}, time.Time{}, false
}

func midnight(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func endOfDay(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 23, 59, 59, endOfDayNanos, loc)
}
