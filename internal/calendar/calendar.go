package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schedcal/internal/model"
)

// ErrNoCard is returned when a pointer lands on an event that has no card
// in the current view (other week, month view, or unmeasured grid).
var ErrNoCard = errors.New("calendar: event has no card in current view")

// Outcome describes what a finished pointer interaction did.
type Outcome struct {
	Kind  GestureKind
	Event model.Event
	// Drop is set for drag ends.
	Drop *Drop
}

// Calendar is one mounted calendar instance. It owns its view state, the
// gesture recognizer and the detail overlay. Inputs (events, availability,
// theme) are never mutated. Not safe for concurrent use.
type Calendar struct {
	state        *State
	events       []model.Event
	availability []model.AvailabilitySlot
	theme        model.Theme
	hooks        Hooks
	metrics      Metrics

	gesture *Gesture
	overlay *Overlay

	// Card under the current (or last) interaction.
	activeID   string
	activeCard Card
	activeGrid Grid
	activeFrom time.Time
}

type Option func(*options)

type options struct {
	state         []StateOption
	metrics       Metrics
	dragThreshold float64
	returnDur     time.Duration
	now           func() time.Time
}

func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDragThreshold sets the movement, in grid units, that turns a press
// into a drag.
func WithDragThreshold(t float64) Option {
	return func(o *options) { o.dragThreshold = t }
}

func WithReturnDuration(d time.Duration) Option {
	return func(o *options) { o.returnDur = d }
}

// WithStateOptions configures the owned State.
func WithStateOptions(opts ...StateOption) Option {
	return func(o *options) { o.state = append(o.state, opts...) }
}

// WithNow sets the clock for both the state and the return animation.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
		o.state = append(o.state, WithClock(now))
	}
}

// New mounts a calendar instance.
func New(events []model.Event, availability []model.AvailabilitySlot, theme model.Theme, hooks Hooks, opts ...Option) *Calendar {
	o := options{metrics: DefaultMetrics()}
	for _, opt := range opts {
		opt(&o)
	}

	st := NewState(o.state...)
	return &Calendar{
		state:        st,
		events:       cloneEvents(events),
		availability: append([]model.AvailabilitySlot(nil), availability...),
		theme:        theme,
		hooks:        hooks,
		metrics:      o.metrics.withDefaults(),
		gesture:      NewGesture(o.dragThreshold, o.returnDur, o.now),
		overlay:      NewOverlay(hooks.OnEventRenderPopup, st.Location()),
	}
}

func cloneEvents(events []model.Event) []model.Event {
	return append([]model.Event(nil), events...)
}

func (c *Calendar) State() *State         { return c.state }
func (c *Calendar) Theme() model.Theme    { return c.theme }
func (c *Calendar) Metrics() Metrics      { return c.metrics }
func (c *Calendar) Overlay() *Overlay     { return c.overlay }
func (c *Calendar) Gesture() *Gesture     { return c.gesture }
func (c *Calendar) Events() []model.Event { return cloneEvents(c.events) }

func (c *Calendar) Availability() []model.AvailabilitySlot {
	return append([]model.AvailabilitySlot(nil), c.availability...)
}

// SetEvents replaces the event input, typically after the host applied a
// reschedule.
func (c *Calendar) SetEvents(events []model.Event) {
	c.events = cloneEvents(events)
}

func (c *Calendar) SetAvailability(slots []model.AvailabilitySlot) {
	c.availability = append([]model.AvailabilitySlot(nil), slots...)
}

// Context returns ctx carrying this instance's state.
func (c *Calendar) Context(ctx context.Context) context.Context {
	return NewContext(ctx, c.state)
}

// Layout publishes the measured grid width.
func (c *Calendar) Layout(width float64) {
	c.state.SetWidth(width)
}

// View composes the active view.
func (c *Calendar) View() View {
	return Compose(c.state, c.events, c.metrics, c.theme)
}

// PointerDown starts an interaction on an event card.
func (c *Calendar) PointerDown(eventID string, x, y float64) error {
	if c.gesture.State() != GestureIdle {
		return nil
	}
	v := c.View()
	if v.Time == nil {
		return fmt.Errorf("%w: %s", ErrNoCard, eventID)
	}
	card, ok := v.Time.Card(eventID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoCard, eventID)
	}
	c.activeID = eventID
	c.activeCard = card
	c.activeGrid = v.Time.Grid
	c.activeFrom = v.Time.Start
	c.gesture.Down(Point{X: x, Y: y})
	return nil
}

func (c *Calendar) PointerMove(x, y float64) {
	c.gesture.Move(Point{X: x, Y: y})
}

// PointerUp ends the interaction. A tap opens the overlay and notifies
// OnEventPress. A drag reports the drop target through OnEventDragEnd; the
// card then animates back regardless of what the host does with it.
func (c *Calendar) PointerUp(x, y float64) Outcome {
	res := c.gesture.Up(Point{X: x, Y: y})
	ev := c.activeCard.Event

	switch res.Kind {
	case GestureTap:
		c.overlay.Open(ev)
		c.hooks.pressed(ev)
		return Outcome{Kind: GestureTap, Event: ev}
	case GestureDragEnd:
		drop, ok := c.activeGrid.Drop(c.activeCard.Rect, res.Translation.X, res.Translation.Y, c.activeFrom)
		if !ok {
			return Outcome{Kind: GestureNone, Event: ev}
		}
		c.hooks.dragEnded(ev, drop.Start)
		return Outcome{Kind: GestureDragEnd, Event: ev, Drop: &drop}
	default:
		return Outcome{}
	}
}

// PointerCancel abandons the interaction; no callback fires.
func (c *Calendar) PointerCancel() {
	c.gesture.Cancel()
	c.activeID = ""
}

// DragOffset returns the card currently displaced by a drag (or its return
// animation) and the translation to draw it with.
func (c *Calendar) DragOffset() (string, Point) {
	if c.activeID == "" {
		return "", Point{}
	}
	p := c.gesture.Offset()
	if p == (Point{}) && c.gesture.State() == GestureIdle {
		return "", Point{}
	}
	return c.activeID, p
}

// Unmount discards transient interaction and overlay state.
func (c *Calendar) Unmount() {
	c.gesture.Cancel()
	c.overlay.Close()
	c.activeID = ""
	c.activeCard = Card{}
}
