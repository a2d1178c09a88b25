package calendar

import (
	"time"

	"schedcal/internal/model"
)

// Next returns anchor advanced by one day, one week or one calendar month.
func Next(anchor time.Time, mode model.ViewMode) time.Time {
	return step(anchor, mode, 1)
}

// Previous is the inverse of Next.
func Previous(anchor time.Time, mode model.ViewMode) time.Time {
	return step(anchor, mode, -1)
}

func step(anchor time.Time, mode model.ViewMode, dir int) time.Time {
	switch mode {
	case model.ViewDay:
		return anchor.AddDate(0, 0, dir)
	case model.ViewMonth:
		return anchor.AddDate(0, dir, 0)
	default:
		return anchor.AddDate(0, 0, 7*dir)
	}
}

// DayIndex maps a weekday to its column: Monday=0 .. Sunday=6.
func DayIndex(t time.Time) int {
	wd := t.Weekday()
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns Monday 00:00 on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -DayIndex(t))
}

// Label formats the header text for a view:
//
//	day:   "March 4, 2025"
//	week:  "Mar 3 – Mar 9, 2025"
//	month: "March 2025"
func Label(anchor time.Time, mode model.ViewMode) string {
	switch mode {
	case model.ViewDay:
		return anchor.Format("January 2, 2006")
	case model.ViewWeek:
		start := WeekStart(anchor)
		end := start.AddDate(0, 0, 6)
		return start.Format("Jan 2") + " – " + end.Format("Jan 2, 2006")
	case model.ViewMonth:
		return anchor.Format("January 2006")
	default:
		return ""
	}
}
