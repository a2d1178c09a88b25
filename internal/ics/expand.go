package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

const defaultMaxInstances = 5000

// Window selects which instances Expand produces.
type Window struct {
	Start time.Time
	End   time.Time

	// Location is the display zone instances are converted to. Nil means
	// time.Local.
	Location *time.Location

	// MaxInstances caps a single series. Zero selects a default.
	MaxInstances int
}

// Expand turns parsed VEVENTs into concrete calendar events overlapping the
// window. Recurring series are expanded with RRULE/EXDATE and instances
// overridden by RECURRENCE-ID VEVENTs are replaced. When several VEVENTs
// share a UID (or a UID and RECURRENCE-ID) only the highest SEQUENCE is
// kept; on a tie the later one wins. Every instance gets a unique ID of the
// form "<source>/<uid>" for single events and "<source>/<uid>/<recurrence-id>"
// for recurrence instances.
func Expand(vevents []VEvent, w Window) ([]model.Event, error) {
	if w.End.Before(w.Start) {
		return nil, errors.New("ics: window end before start")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.MaxInstances <= 0 {
		w.MaxInstances = defaultMaxInstances
	}

	type series struct {
		master    *VEvent
		overrides []VEvent
	}
	byUID := make(map[string]*series)
	var order []string
	for _, ve := range vevents {
		key := ve.Source.ID + "/" + ve.UID
		s, ok := byUID[key]
		if !ok {
			s = &series{}
			byUID[key] = s
			order = append(order, key)
		}
		if ve.IsOverride() {
			s.overrides = addOverride(s.overrides, ve)
			continue
		}
		if s.master == nil || ve.Seq >= s.master.Seq {
			if s.master != nil {
				appLog.Debug("ics vevent superseded", "uid", ve.UID, "seq", s.master.Seq, "by", ve.Seq)
			}
			m := ve
			s.master = &m
		}
	}

	out := make([]model.Event, 0)
	for _, key := range order {
		s := byUID[key]
		m := s.master
		if m != nil && m.RRule == "" {
			if overlaps(m.Start, m.End, w.Start, w.End) {
				out = append(out, toEvent(*m, m.Start, m.End, key, w.Location))
			}
			continue
		}

		used := make(map[int]bool, len(s.overrides))
		if m != nil {
			instances, truncated := expandSeries(*m, s.overrides, used, w, key)
			if truncated {
				appLog.Warn("ics series truncated", "uid", m.UID, "cap", w.MaxInstances)
			}
			out = append(out, instances...)
		}

		// Overrides whose RECURRENCE-ID fell outside the expanded range,
		// or that have no master in the feed, still show up where they
		// were moved to.
		for i, o := range s.overrides {
			if used[i] || !overlaps(o.Start, o.End, w.Start, w.End) {
				continue
			}
			if m == nil {
				appLog.Debug("ics override without master", "uid", o.UID)
			}
			out = append(out, toEvent(o, o.Start, o.End, instanceID(key, *o.RecurrenceID), w.Location))
		}
	}
	return out, nil
}

// addOverride keeps one override per RECURRENCE-ID, preferring the highest
// SEQUENCE and, on a tie, the later one.
func addOverride(list []VEvent, ve VEvent) []VEvent {
	for i, o := range list {
		if o.RecurrenceID.Equal(*ve.RecurrenceID) {
			if ve.Seq >= o.Seq {
				list[i] = ve
			}
			return list
		}
	}
	return append(list, ve)
}

func instanceID(key string, recurrenceID time.Time) string {
	return fmt.Sprintf("%s/%s", key, recurrenceID.UTC().Format("20060102T150405Z"))
}

func expandSeries(m VEvent, overrides []VEvent, used map[int]bool, w Window, key string) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(m.RRule)
	if err != nil {
		appLog.Error("ics rrule parse failed", err, "uid", m.UID, "rrule", m.RRule)
		return nil, false
	}
	r.DTStart(m.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range m.ExDates {
		set.ExDate(ex.In(m.Start.Location()))
	}

	dur := m.End.Sub(m.Start)
	// Widen the lower bound by the duration so instances that started
	// before the window but are still running are kept.
	from := w.Start.Add(-dur).In(m.Start.Location())
	to := w.End.In(m.Start.Location())
	starts := set.Between(from, to, true)

	truncated := false
	if len(starts) > w.MaxInstances {
		starts = starts[:w.MaxInstances]
		truncated = true
	}

	out := make([]model.Event, 0, len(starts))
	for _, rid := range starts {
		st, end := rid, rid.Add(dur)
		if m.AllDay {
			st = time.Date(st.Year(), st.Month(), st.Day(), 0, 0, 0, 0, st.Location())
			end = st.AddDate(0, 0, 1)
		}

		src := m
		if i, ok := findOverride(overrides, rid); ok {
			used[i] = true
			src = overrides[i]
			st, end = src.Start, src.End
		}
		if !overlaps(st, end, w.Start, w.End) {
			continue
		}
		out = append(out, toEvent(src, st, end, instanceID(key, rid), w.Location))
	}
	return out, truncated
}

func findOverride(overrides []VEvent, start time.Time) (int, bool) {
	for i, o := range overrides {
		if o.RecurrenceID != nil && o.RecurrenceID.Equal(start) {
			return i, true
		}
	}
	return -1, false
}

func toEvent(v VEvent, start, end time.Time, id string, loc *time.Location) model.Event {
	color := v.Color
	if color == "" {
		color = v.Source.Color
	}
	return model.Event{
		ID:          id,
		Title:       v.Summary,
		Start:       start.In(loc),
		End:         end.In(loc),
		Color:       color,
		SourceID:    v.Source.ID,
		Description: v.Description,
		Location:    v.Location,
		AllDay:      v.AllDay,
	}
}

// overlaps treats ranges as half-open; zero-length events count when their
// instant falls inside the window.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
