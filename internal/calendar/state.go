// Package calendar implements the host-independent part of the schedule
// view: view state, navigation, event geometry, view composition, gesture
// recognition and the event detail overlay. Hosts (HTML, terminal, raster)
// draw what this package computes and feed pointer input back into it.
package calendar

import (
	"context"
	"errors"
	"time"

	"schedcal/internal/model"
)

// ErrOutsideProvider is raised when state is looked up in a context that was
// never given one via NewContext.
var ErrOutsideProvider = errors.New("calendar: state accessed outside provider")

// State is the per-instance view state: anchor date, active view mode and the
// measured pixel width of the time grid. It is owned by exactly one Calendar
// and is not safe for concurrent use.
type State struct {
	anchor time.Time
	view   model.ViewMode
	width  float64
	loc    *time.Location
	now    func() time.Time
}

type StateOption func(*State)

// WithClock replaces time.Now, used for "today" and the initial anchor.
func WithClock(now func() time.Time) StateOption {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the display time zone. Defaults to time.Local.
func WithLocation(loc *time.Location) StateOption {
	return func(s *State) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithView(v model.ViewMode) StateOption {
	return func(s *State) {
		if v != "" {
			s.view = v
		}
	}
}

func WithAnchor(t time.Time) StateOption {
	return func(s *State) {
		if !t.IsZero() {
			s.anchor = t
		}
	}
}

// NewState returns state with the mount defaults: anchor now, week view,
// zero width.
func NewState(opts ...StateOption) *State {
	s := &State{
		view: model.ViewWeek,
		loc:  time.Local,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.anchor.IsZero() {
		s.anchor = s.now()
	}
	s.anchor = s.anchor.In(s.loc)
	return s
}

func (s *State) Anchor() time.Time        { return s.anchor }
func (s *State) View() model.ViewMode     { return s.view }
func (s *State) Width() float64           { return s.width }
func (s *State) Location() *time.Location { return s.loc }

// Now returns the state's clock reading in the display location.
func (s *State) Now() time.Time { return s.now().In(s.loc) }

func (s *State) SetAnchor(t time.Time) {
	s.anchor = t.In(s.loc)
}

func (s *State) SetView(v model.ViewMode) {
	s.view = v
}

// SetWidth records the measured grid width. Negative widths are ignored.
func (s *State) SetWidth(w float64) {
	if w < 0 {
		return
	}
	s.width = w
}

// Next moves the anchor forward by one unit of the active view.
func (s *State) Next() {
	s.anchor = Next(s.anchor, s.view)
}

// Previous moves the anchor back by one unit of the active view.
func (s *State) Previous() {
	s.anchor = Previous(s.anchor, s.view)
}

// Today resets the anchor to the current instant.
func (s *State) Today() {
	s.anchor = s.Now()
}

// Label is the header text for the current anchor and view.
func (s *State) Label() string {
	return Label(s.anchor, s.view)
}

// WeekStart is the Monday 00:00 on or before the anchor.
func (s *State) WeekStart() time.Time {
	return WeekStart(s.anchor)
}

type stateKey struct{}

// NewContext returns a child context carrying s.
func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// FromContext returns the state stored by NewContext.
func FromContext(ctx context.Context) (*State, error) {
	if ctx == nil {
		return nil, ErrOutsideProvider
	}
	s, ok := ctx.Value(stateKey{}).(*State)
	if !ok || s == nil {
		return nil, ErrOutsideProvider
	}
	return s, nil
}

// MustFromContext is FromContext for code paths where a missing provider is
// a programming error. It panics with ErrOutsideProvider.
func MustFromContext(ctx context.Context) *State {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
