package agenda

import (
	"fmt"
	"strings"
	"time"

	"schedcal/internal/model"
)

// WeeklySlot is a recurring availability window such as "monday 09:00-17:00".
type WeeklySlot struct {
	Weekday time.Weekday
	Start   time.Duration // offset from midnight
	End     time.Duration
}

// ParseWeeklySlot parses weekday name and "HH:MM" bounds.
func ParseWeeklySlot(weekday, start, end string) (WeeklySlot, error) {
	wd, err := parseWeekday(weekday)
	if err != nil {
		return WeeklySlot{}, err
	}
	s, err := parseClock(start)
	if err != nil {
		return WeeklySlot{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return WeeklySlot{}, err
	}
	if e <= s {
		return WeeklySlot{}, fmt.Errorf("availability %s: end %s not after start %s", weekday, end, start)
	}
	return WeeklySlot{Weekday: wd, Start: s, End: e}, nil
}

// ExpandWeekly materializes weekly slots into concrete availability for the
// days in [from, to), in loc.
func ExpandWeekly(slots []WeeklySlot, from, to time.Time, loc *time.Location) []model.AvailabilitySlot {
	if loc == nil {
		loc = time.Local
	}
	from = from.In(loc)
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)

	var out []model.AvailabilitySlot
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		for _, ws := range slots {
			if day.Weekday() != ws.Weekday {
				continue
			}
			out = append(out, model.AvailabilitySlot{
				Start: atOffset(day, ws.Start),
				End:   atOffset(day, ws.End),
			})
		}
	}
	return out
}

// atOffset builds wall-clock time so DST days keep their nominal hours.
func atOffset(day time.Time, off time.Duration) time.Time {
	h := int(off / time.Hour)
	m := int((off % time.Hour) / time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		// "24:00" closes a slot at midnight.
		if strings.TrimSpace(s) == "24:00" {
			return 24 * time.Hour, nil
		}
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
