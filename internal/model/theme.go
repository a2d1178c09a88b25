package model

import (
	"sort"
	"strings"
)

// Slot names a themable region of the calendar.
type Slot string

const (
	SlotHeaderContainer       Slot = "headerContainer"
	SlotHeaderText            Slot = "headerText"
	SlotViewSwitcherContainer Slot = "viewSwitcherContainer"
	SlotViewButton            Slot = "viewButton"
	SlotViewButtonActive      Slot = "viewButtonActive"
	SlotViewButtonText        Slot = "viewButtonText"
	SlotViewButtonTextActive  Slot = "viewButtonTextActive"
	SlotNavButton             Slot = "navButton"
	SlotNavButtonText         Slot = "navButtonText"
	SlotTodayButtonText       Slot = "todayButtonText"
	SlotTimeGridContainer     Slot = "timeGridContainer"
	SlotTimeLabel             Slot = "timeLabel"
	SlotWeekViewContainer     Slot = "weekViewContainer"
	SlotDayLabelContainer     Slot = "dayLabelContainer"
	SlotDayLabelText          Slot = "dayLabelText"
	SlotDayLabelNumberText    Slot = "dayLabelNumberText"
	SlotEventCard             Slot = "eventCard"
	SlotEventCardTitle        Slot = "eventCardTitle"
	SlotPopupContainer        Slot = "popupContainer"
	SlotPopupTitle            Slot = "popupTitle"
	SlotPopupTime             Slot = "popupTime"
)

// Style is a set of CSS-like property overrides, e.g.
// {"background-color": "#fff"}.
type Style map[string]string

// Theme maps slots to style overrides. It is pass-through configuration:
// the component stores it and hosts decide how to apply it.
type Theme map[Slot]Style

// Style returns the override for slot, or nil.
func (t Theme) Style(slot Slot) Style {
	if t == nil {
		return nil
	}
	return t[slot]
}

// Get returns a single property of a slot.
func (t Theme) Get(slot Slot, prop string) (string, bool) {
	s := t.Style(slot)
	if s == nil {
		return "", false
	}
	v, ok := s[prop]
	return v, ok
}

// CSS renders the style as an inline declaration list with properties in
// sorted order: "color: #fff; font-size: 12px".
func (s Style) CSS() string {
	if len(s) == 0 {
		return ""
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+s[k])
	}
	return strings.Join(parts, "; ")
}
