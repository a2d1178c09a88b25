package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"schedcal/internal/model"
)

const productID = "-//schedcal//schedule export//EN"

// Export serializes events as a VCALENDAR. Each event becomes a standalone
// VEVENT keyed by its ID, so rescheduled instances export at their new time.
func Export(name string, events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetName(name)
	}

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp.UTC())
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start.UTC())
			ve.SetEndAt(ev.End.UTC())
		}
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Color != "" {
			ve.SetProperty(ical.ComponentProperty("COLOR"), ev.Color)
		}
	}
	return cal.Serialize()
}
