package model

import (
	"fmt"
	"strings"
	"time"
)

// Event is a single scheduled appointment as supplied by the host. The
// calendar component never mutates it.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Start must precede End; this is not validated.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Color is an optional hex color ("#007bff"). Empty means the default
	// card color.
	Color string `json:"color,omitempty"`

	// Populated when the event came from an ICS feed.
	SourceID    string `json:"source_id,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	AllDay      bool   `json:"all_day"`
}

// Duration returns End - Start. It may be negative for malformed input.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// AvailabilitySlot is a bookable time range. It is carried through the
// component but not rendered.
type AvailabilitySlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

// ViewModes lists the modes in switcher order.
var ViewModes = []ViewMode{ViewDay, ViewWeek, ViewMonth}

func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewDay:
		return ViewDay, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unknown view mode %q", s)
	}
}

// Title returns the switcher caption ("Day", "Week", "Month").
func (m ViewMode) Title() string {
	if m == "" {
		return ""
	}
	s := string(m)
	return strings.ToUpper(s[:1]) + s[1:]
}
