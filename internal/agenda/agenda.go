// Package agenda is the host-side event store behind the calendar views. It
// holds feed events and availability in memory and applies reschedule
// proposals coming out of drag gestures.
package agenda

import (
	"errors"
	"sort"
	"sync"
	"time"

	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

var ErrNotFound = errors.New("agenda: event not found")

// Policy decides whether a proposed reschedule is accepted. Returning an
// error rejects it.
type Policy func(ev model.Event, newStart time.Time) error

// Move is an applied reschedule.
type Move struct {
	EventID  string    `json:"event_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	MovedAt  time.Time `json:"moved_at"`
	Accepted bool      `json:"accepted"`
	Reason   string    `json:"reason,omitempty"`
}

// Store keeps the current event set. Feed refreshes replace the base set;
// accepted moves are kept as overrides on top of it so they survive a
// refresh until the event disappears from the feed.
type Store struct {
	mu           sync.RWMutex
	base         []model.Event
	overrides    map[string]time.Time
	availability []model.AvailabilitySlot
	history      []Move
	policy       Policy
	version      uint64
	now          func() time.Time
}

func New(policy Policy) *Store {
	return &Store{
		overrides: make(map[string]time.Time),
		policy:    policy,
		now:       time.Now,
	}
}

// SetPolicy replaces the reschedule policy. Nil accepts everything.
func (s *Store) SetPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

// Replace swaps the base event set, e.g. after a feed refresh. Overrides for
// events no longer present are dropped.
func (s *Store) Replace(events []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.base = append([]model.Event(nil), events...)
	present := make(map[string]bool, len(events))
	for _, ev := range events {
		present[ev.ID] = true
	}
	for id := range s.overrides {
		if !present[id] {
			delete(s.overrides, id)
		}
	}
	s.version++
}

func (s *Store) SetAvailability(slots []model.AvailabilitySlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availability = append([]model.AvailabilitySlot(nil), slots...)
	s.version++
}

func (s *Store) Availability() []model.AvailabilitySlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.AvailabilitySlot(nil), s.availability...)
}

// Events returns the effective events sorted by start, with overrides
// applied. Moved events keep their duration.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0, len(s.base))
	for _, ev := range s.base {
		if to, ok := s.overrides[ev.ID]; ok {
			ev = shift(ev, to)
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Version increases on every change so hosts can tell when to re-supply
// events to their calendars.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Reschedule is the host's answer to a drag end: it runs the policy and
// records the move. The returned Move says whether it was accepted.
func (s *Store) Reschedule(id string, newStart time.Time) (Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.find(id)
	if !ok {
		return Move{}, ErrNotFound
	}
	if to, moved := s.overrides[id]; moved {
		ev = shift(ev, to)
	}

	m := Move{EventID: id, From: ev.Start, To: newStart, MovedAt: s.now()}
	if s.policy != nil {
		if err := s.policy(ev, newStart); err != nil {
			m.Reason = err.Error()
			s.history = append(s.history, m)
			appLog.Info("reschedule rejected", "id", id, "to", newStart.Format(time.RFC3339), "reason", m.Reason)
			return m, nil
		}
	}

	m.Accepted = true
	s.overrides[id] = newStart
	s.history = append(s.history, m)
	s.version++
	appLog.Info("reschedule accepted", "id", id, "from", m.From.Format(time.RFC3339), "to", newStart.Format(time.RFC3339))
	return m, nil
}

// History returns all reschedule decisions, oldest first.
func (s *Store) History() []Move {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Move(nil), s.history...)
}

func (s *Store) find(id string) (model.Event, bool) {
	for _, ev := range s.base {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

func shift(ev model.Event, to time.Time) model.Event {
	d := ev.Duration()
	ev.Start = to
	ev.End = to.Add(d)
	return ev
}

// WithinAvailability is a Policy that only accepts moves whose new range
// lies fully inside one availability slot. With no slots configured every
// move is accepted.
func (s *Store) WithinAvailability(ev model.Event, newStart time.Time) error {
	// Called with s.mu held by Reschedule.
	if len(s.availability) == 0 {
		return nil
	}
	end := newStart.Add(ev.Duration())
	for _, slot := range s.availability {
		if !newStart.Before(slot.Start) && !end.After(slot.End) {
			return nil
		}
	}
	return errors.New("outside availability")
}
