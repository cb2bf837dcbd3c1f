package planner

import "time"

// upcomingMonday returns the date plans generated at now start on: tomorrow on Sunday, today on Monday, and the
// next Monday otherwise. The result is midnight UTC of that calendar day.
func upcomingMonday(now time.Time) time.Time {
	var offset int
	switch wd := now.Weekday(); wd {
	case time.Sunday:
		offset = 1
	case time.Monday:
		offset = 0
	default:
		offset = 8 - int(wd) //nolint:mnd // days until next Monday.
	}
	day := now.AddDate(0, 0, offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns midnight UTC of the Monday of the week containing now.
func startOfWeek(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7 //nolint:mnd // days since Monday.
	day := now.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
