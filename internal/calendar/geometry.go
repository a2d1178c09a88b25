package calendar

import (
	"fmt"
	"math"
	"time"

	"schedcal/internal/model"
)

const (
	DefaultHourHeight = 60
	DefaultCardMargin = 1
	HoursPerDay       = 24
	DaysPerWeek       = 7
)

// Metrics are the fixed sizes of the time grid, in the host's units
// (pixels for HTML and raster, cells for the terminal).
type Metrics struct {
	HourHeight float64
	Margin     float64
}

func DefaultMetrics() Metrics {
	return Metrics{HourHeight: DefaultHourHeight, Margin: DefaultCardMargin}
}

func (m Metrics) withDefaults() Metrics {
	if m.HourHeight <= 0 {
		m.HourHeight = DefaultHourHeight
	}
	if m.Margin < 0 {
		m.Margin = 0
	}
	return m
}

// GridHeight is the height of a full 24-hour column.
func (m Metrics) GridHeight() float64 {
	return m.withDefaults().HourHeight * HoursPerDay
}

// Rect is an event card's box relative to the grid's top-left corner.
type Rect struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
}

func (r Rect) String() string {
	return fmt.Sprintf("{top=%g height=%g left=%g width=%g}", r.Top, r.Height, r.Left, r.Width)
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x < r.Left+r.Width && y >= r.Top && y < r.Top+r.Height
}

// Grid describes a measured time grid with equal-width day columns.
type Grid struct {
	Metrics
	Width    float64
	Columns  int
	Location *time.Location
}

// WeekGrid is the seven-column grid used by the week view.
func WeekGrid(m Metrics, width float64, loc *time.Location) Grid {
	return Grid{Metrics: m.withDefaults(), Width: width, Columns: DaysPerWeek, Location: loc}
}

// DayGrid is the single-column grid used by the day view.
func DayGrid(m Metrics, width float64, loc *time.Location) Grid {
	return Grid{Metrics: m.withDefaults(), Width: width, Columns: 1, Location: loc}
}

// Measured reports whether layout width is known.
func (g Grid) Measured() bool {
	return g.Width > 0 && g.Columns > 0
}

func (g Grid) ColumnWidth() float64 {
	if g.Columns <= 0 {
		return 0
	}
	return g.Width / float64(g.Columns)
}

func (g Grid) in(t time.Time) time.Time {
	if g.Location == nil {
		return t
	}
	return t.In(g.Location)
}

// Column returns the column an event is assigned to. Only the start instant
// counts; multi-day events stay in their first day's column.
func (g Grid) Column(ev model.Event) int {
	if g.Columns == DaysPerWeek {
		return DayIndex(g.in(ev.Start))
	}
	return 0
}

// Place computes the card rectangle for ev. It reports false while the grid
// is unmeasured so callers skip the card instead of drawing a zero-width box.
func (g Grid) Place(ev model.Event) (Rect, bool) {
	return g.PlaceAt(ev, g.Column(ev))
}

// PlaceAt is Place with an explicit column.
func (g Grid) PlaceAt(ev model.Event, column int) (Rect, bool) {
	if !g.Measured() {
		return Rect{}, false
	}
	hh := g.withDefaults().HourHeight
	start := g.in(ev.Start)

	// Minute difference truncates toward zero like a whole-minute diff.
	minutes := int64(ev.End.Sub(ev.Start) / time.Minute)

	cw := g.ColumnWidth()
	return Rect{
		Top:    float64(start.Hour())*hh + float64(start.Minute())/60*hh,
		Height: float64(minutes) / 60 * hh,
		Left:   cw*float64(column) + g.Margin,
		Width:  cw - 2*g.Margin,
	}, true
}

// Drop is the cell a dragged card was released over.
type Drop struct {
	DayIndex int       `json:"day_index"`
	Hour     int       `json:"hour"`
	Start    time.Time `json:"start"`
}

// Drop maps a drag translation (dx, dy) applied to a card at rect back to a
// day column and whole hour. The result is not clamped: targets left of the
// first column or past 23:00 roll into neighbouring days.
func (g Grid) Drop(rect Rect, dx, dy float64, weekStart time.Time) (Drop, bool) {
	cw := g.ColumnWidth()
	hh := g.withDefaults().HourHeight
	if cw <= 0 {
		return Drop{}, false
	}

	day := int(math.Floor((rect.Left + dx) / cw))
	hour := int(math.Floor((rect.Top+dy)/hh + 0.5))

	y, m, d := weekStart.Date()
	start := time.Date(y, m, d+day, hour, 0, 0, 0, weekStart.Location())
	return Drop{DayIndex: day, Hour: hour, Start: start}, true
}

// HourRow is one row of the time gutter.
type HourRow struct {
	Hour   int     `json:"hour"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Label  string  `json:"label"`
}

// HourRows returns the 24 fixed-height rows of the time grid, 0:00 included.
func HourRows(m Metrics) []HourRow {
	hh := m.withDefaults().HourHeight
	rows := make([]HourRow, HoursPerDay)
	for h := range rows {
		rows[h] = HourRow{
			Hour:   h,
			Top:    float64(h) * hh,
			Height: hh,
			Label:  fmt.Sprintf("%d:00", h),
		}
	}
	return rows
}
