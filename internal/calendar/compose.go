package calendar

import (
	"time"

	"schedcal/internal/model"
)

// Line is a grid line segment in grid coordinates.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// DayHeader is the label above a day column ("Mon" / "3").
type DayHeader struct {
	Date   time.Time `json:"date"`
	Name   string    `json:"name"`
	Number string    `json:"number"`
	Today  bool      `json:"today"`
}

// Card is a positioned event.
type Card struct {
	Event     model.Event `json:"event"`
	Column    int         `json:"column"`
	Rect      Rect        `json:"rect"`
	Color     string      `json:"color"`
	TextColor string      `json:"text_color"`
}

// TimeLayout is a composed day or week view: a 24-hour grid with day
// columns and the cards that fall into its window.
type TimeLayout struct {
	Mode model.ViewMode `json:"mode"`

	// Window is [Start, End).
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Grid     Grid `json:"-"`
	Measured bool `json:"measured"`
	Columns  int  `json:"columns"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Days   []DayHeader `json:"days"`
	Hours  []HourRow   `json:"hours"`
	VLines []Line      `json:"vlines"`
	HLines []Line      `json:"hlines"`
	Cards  []Card      `json:"cards"`
}

// Card returns the card for the given event ID.
func (l *TimeLayout) Card(id string) (Card, bool) {
	for _, c := range l.Cards {
		if c.Event.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// MonthCell is one day in the month grid.
type MonthCell struct {
	Date    time.Time     `json:"date"`
	InMonth bool          `json:"in_month"`
	Today   bool          `json:"today"`
	Events  []model.Event `json:"events"`
}

// MonthLayout is a 6x7 grid starting on the Monday on or before the 1st.
type MonthLayout struct {
	Month time.Time     `json:"month"`
	Weeks [][]MonthCell `json:"weeks"`
}

// View is the composed active view. Exactly one of Time and Month is set.
type View struct {
	Mode  model.ViewMode `json:"mode"`
	Label string         `json:"label"`
	Time  *TimeLayout    `json:"time,omitempty"`
	Month *MonthLayout   `json:"month,omitempty"`
}

// InWindow reports whether ev starts in [start, end).
func InWindow(ev model.Event, start, end time.Time) bool {
	return !ev.Start.Before(start) && ev.Start.Before(end)
}

// FilterWindow returns the events starting in [start, end), keeping order.
func FilterWindow(events []model.Event, start, end time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if InWindow(ev, start, end) {
			out = append(out, ev)
		}
	}
	return out
}

// Compose builds the view for the state's active mode.
func Compose(s *State, events []model.Event, m Metrics, theme model.Theme) View {
	v := View{Mode: s.View(), Label: s.Label()}
	switch s.View() {
	case model.ViewDay:
		l := ComposeDay(s, events, m, theme)
		v.Time = &l
	case model.ViewMonth:
		l := ComposeMonth(s, events)
		v.Month = &l
	default:
		v.Mode = model.ViewWeek
		l := ComposeWeek(s, events, m, theme)
		v.Time = &l
	}
	return v
}

// ComposeWeek lays out the Monday-anchored week around the state's anchor.
// Until the grid width has been measured the layout carries headers and hour
// rows only.
func ComposeWeek(s *State, events []model.Event, m Metrics, theme model.Theme) TimeLayout {
	start := s.WeekStart()
	grid := WeekGrid(m, s.Width(), s.Location())
	return composeTime(s, model.ViewWeek, grid, start, start.AddDate(0, 0, DaysPerWeek), events, theme)
}

// ComposeDay lays out the anchor day as a single column.
func ComposeDay(s *State, events []model.Event, m Metrics, theme model.Theme) TimeLayout {
	start := StartOfDay(s.Anchor())
	grid := DayGrid(m, s.Width(), s.Location())
	return composeTime(s, model.ViewDay, grid, start, start.AddDate(0, 0, 1), events, theme)
}

func composeTime(s *State, mode model.ViewMode, grid Grid, start, end time.Time, events []model.Event, theme model.Theme) TimeLayout {
	l := TimeLayout{
		Mode:     mode,
		Start:    start,
		End:      end,
		Grid:     grid,
		Measured: grid.Measured(),
		Columns:  grid.Columns,
		Width:    grid.Width,
		Height:   grid.GridHeight(),
		Hours:    HourRows(grid.Metrics),
	}

	today := StartOfDay(s.Now())
	for i := 0; i < grid.Columns; i++ {
		d := start.AddDate(0, 0, i)
		l.Days = append(l.Days, DayHeader{
			Date:   d,
			Name:   d.Format("Mon"),
			Number: d.Format("2"),
			Today:  d.Equal(today),
		})
	}

	if !l.Measured {
		return l
	}

	cw := grid.ColumnWidth()
	for i := 1; i <= grid.Columns; i++ {
		x := cw * float64(i)
		l.VLines = append(l.VLines, Line{X1: x, Y1: 0, X2: x, Y2: l.Height})
	}
	for _, row := range l.Hours {
		l.HLines = append(l.HLines, Line{X1: 0, Y1: row.Top, X2: l.Width, Y2: row.Top})
	}

	for _, ev := range FilterWindow(events, start, end) {
		col := grid.Column(ev)
		r, ok := grid.PlaceAt(ev, col)
		if !ok {
			continue
		}
		bg, fg := CardColors(ev, theme)
		l.Cards = append(l.Cards, Card{Event: ev, Column: col, Rect: r, Color: bg, TextColor: fg})
	}
	return l
}

const monthWeeks = 6

// ComposeMonth buckets events by start day into a 6-week grid.
func ComposeMonth(s *State, events []model.Event) MonthLayout {
	a := s.Anchor()
	first := time.Date(a.Year(), a.Month(), 1, 0, 0, 0, 0, s.Location())
	gridStart := WeekStart(first)
	today := StartOfDay(s.Now())

	byDay := make(map[string][]model.Event)
	for _, ev := range events {
		k := ev.Start.In(s.Location()).Format(time.DateOnly)
		byDay[k] = append(byDay[k], ev)
	}

	l := MonthLayout{Month: first, Weeks: make([][]MonthCell, monthWeeks)}
	for w := 0; w < monthWeeks; w++ {
		row := make([]MonthCell, DaysPerWeek)
		for d := 0; d < DaysPerWeek; d++ {
			date := gridStart.AddDate(0, 0, w*DaysPerWeek+d)
			row[d] = MonthCell{
				Date:    date,
				InMonth: date.Month() == first.Month(),
				Today:   date.Equal(today),
				Events:  byDay[date.Format(time.DateOnly)],
			}
		}
		l.Weeks[w] = row
	}
	return l
}
