package calendar

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"schedcal/internal/model"
)

const (
	DefaultCardColor = "#007bff"
	lightText        = "#ffffff"
	darkText         = "#212529"
)

// CardColors resolves the background and title colors of an event card.
// The event's own color wins, then the theme's eventCard background, then
// DefaultCardColor. Unparseable colors are skipped. The title is dark on
// light backgrounds and white otherwise.
func CardColors(ev model.Event, theme model.Theme) (bg, fg string) {
	c, ok := parseColor(ev.Color)
	if !ok {
		if v, found := theme.Get(model.SlotEventCard, "background-color"); found {
			c, ok = parseColor(v)
		}
	}
	if !ok {
		c, _ = parseColor(DefaultCardColor)
	}

	l, _, _ := c.Lab()
	if l > 0.7 {
		return c.Hex(), darkText
	}
	return c.Hex(), lightText
}

// ParseColor parses "#rgb" or "#rrggbb".
func ParseColor(s string) (colorful.Color, bool) {
	return parseColor(s)
}

func parseColor(s string) (colorful.Color, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return colorful.Color{}, false
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}
