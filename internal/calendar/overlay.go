package calendar

import (
	"time"

	"schedcal/internal/model"
)

// PopupContent is what the event detail overlay shows.
type PopupContent struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Overlay tracks the event detail popup. The host may replace its content
// through a PopupRenderer, but visibility and dismissal stay here.
type Overlay struct {
	visible  bool
	ev       model.Event
	renderer PopupRenderer
	loc      *time.Location
}

func NewOverlay(renderer PopupRenderer, loc *time.Location) *Overlay {
	if loc == nil {
		loc = time.Local
	}
	return &Overlay{renderer: renderer, loc: loc}
}

func (o *Overlay) Open(ev model.Event) {
	o.ev = ev
	o.visible = true
}

func (o *Overlay) Close() {
	o.visible = false
	o.ev = model.Event{}
}

func (o *Overlay) Visible() bool { return o.visible }

// Event returns the event being shown.
func (o *Overlay) Event() (model.Event, bool) {
	return o.ev, o.visible
}

// Content renders the popup for the shown event. It reports false when the
// overlay is hidden.
func (o *Overlay) Content() (PopupContent, bool) {
	if !o.visible {
		return PopupContent{}, false
	}
	if o.renderer != nil {
		return o.renderer.RenderPopup(o.ev, o.Close), true
	}
	return DefaultPopup(o.ev, o.loc), true
}

// DefaultPopup shows the title, the start date and the time range.
func DefaultPopup(ev model.Event, loc *time.Location) PopupContent {
	start, end := ev.Start.In(loc), ev.End.In(loc)
	return PopupContent{
		Title: ev.Title,
		Lines: []string{
			start.Format("Mon Jan 2"),
			TimeRange(start, end),
		},
	}
}

// TimeRange formats "10:00 – 10:30".
func TimeRange(start, end time.Time) string {
	return start.Format("15:04") + " – " + end.Format("15:04")
}
