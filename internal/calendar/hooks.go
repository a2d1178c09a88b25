package calendar

import (
	"time"

	"schedcal/internal/model"
)

// PressHandler is notified when an event card is tapped.
type PressHandler interface {
	EventPressed(ev model.Event)
}

// DragEndHandler receives the proposed new start of a dragged event. The
// calendar does not apply the change; the host persists or rejects it and
// re-supplies events.
type DragEndHandler interface {
	EventDragEnded(ev model.Event, newStart time.Time)
}

// PopupRenderer replaces the content of the event detail overlay. close
// hides the overlay.
type PopupRenderer interface {
	RenderPopup(ev model.Event, close func()) PopupContent
}

type PressFunc func(ev model.Event)

func (f PressFunc) EventPressed(ev model.Event) { f(ev) }

type DragEndFunc func(ev model.Event, newStart time.Time)

func (f DragEndFunc) EventDragEnded(ev model.Event, newStart time.Time) { f(ev, newStart) }

type PopupFunc func(ev model.Event, close func()) PopupContent

func (f PopupFunc) RenderPopup(ev model.Event, close func()) PopupContent { return f(ev, close) }

// Hooks groups the host callbacks. Nil members are no-ops.
type Hooks struct {
	OnEventPress       PressHandler
	OnEventDragEnd     DragEndHandler
	OnEventRenderPopup PopupRenderer
}

func (h Hooks) pressed(ev model.Event) {
	if h.OnEventPress != nil {
		h.OnEventPress.EventPressed(ev)
	}
}

func (h Hooks) dragEnded(ev model.Event, newStart time.Time) {
	if h.OnEventDragEnd != nil {
		h.OnEventDragEnd.EventDragEnded(ev, newStart)
	}
}
