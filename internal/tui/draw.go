package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"schedcal/internal/calendar"
	"schedcal/internal/model"
)

var (
	styleBase   = tcell.StyleDefault
	styleHeader = tcell.StyleDefault.Bold(true)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleToday  = tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true)
	styleActive = tcell.StyleDefault.Reverse(true)
	styleBorder = tcell.StyleDefault.Foreground(tcell.ColorSilver)
)

const hints = "n/p nav  t today  d/w/m view  q quit"

// Draw renders the active view. The grid width is re-published on every
// draw so a resize re-measures the layout.
func (u *UI) Draw() {
	s := u.screen
	s.Clear()
	w, h := s.Size()

	st := u.cal.State()
	u.cal.Layout(float64(max(w-GutterWidth, 0)))
	v := u.cal.View()

	u.drawHeader(w, v.Label, st.View())
	switch {
	case v.Time != nil:
		u.drawTime(h, v.Time)
	case v.Month != nil:
		u.drawMonth(w, h, v.Month)
	}
	if p, ok := u.cal.Overlay().Content(); ok {
		drawPopup(s, w, h, p)
	}

	status := u.status
	if status == "" {
		status = hints
	}
	drawText(s, 0, h-1, w, styleDim, status)
	s.Show()
}

func (u *UI) drawHeader(w int, label string, active model.ViewMode) {
	x := drawText(u.screen, 1, 0, w-1, styleHeader, label)
	x += 2
	for _, m := range model.ViewModes {
		st := styleBase
		if m == active {
			st = styleActive
		}
		x = drawText(u.screen, x, 0, w-x, st, " "+m.Title()+" ")
		x++
	}
}

func (u *UI) drawTime(h int, l *calendar.TimeLayout) {
	s := u.screen
	bottom := h - 1
	cw := l.Grid.ColumnWidth()

	for i, d := range l.Days {
		st := styleBase
		if d.Today {
			st = styleToday
		}
		x := GutterWidth + int(cw*float64(i))
		drawText(s, x+1, 1, int(cw)-1, st, d.Name+" "+d.Number)
	}

	for _, row := range l.Hours {
		y := gridTop + int(row.Top) - u.scroll
		if y >= gridTop && y < bottom {
			drawText(s, 0, y, GutterWidth, styleDim, hourLabel(row.Hour))
		}
	}

	for _, ln := range l.VLines {
		x := GutterWidth + int(ln.X1)
		for y := gridTop; y < bottom; y++ {
			s.SetContent(x, y, '│', nil, styleBorder)
		}
	}

	dragID, off := u.cal.DragOffset()
	for _, c := range l.Cards {
		var o calendar.Point
		if c.Event.ID == dragID {
			o = off
		}
		x, y, cwid, ch := cellRect(c.Rect, o)
		st := cardStyle(c, c.Event.ID == dragID)
		for dy := 0; dy < ch; dy++ {
			sy := gridTop + y + dy - u.scroll
			if sy < gridTop || sy >= bottom {
				continue
			}
			fill(s, GutterWidth+x, sy, cwid, st)
			switch dy {
			case 0:
				drawText(s, GutterWidth+x, sy, cwid, st, c.Event.Title)
			case 1:
				drawText(s, GutterWidth+x, sy, cwid, st, calendar.TimeRange(c.Event.Start.In(l.Grid.Location), c.Event.End.In(l.Grid.Location)))
			}
		}
	}
}

func (u *UI) drawMonth(w, h int, l *calendar.MonthLayout) {
	s := u.screen
	cellW := max(w/calendar.DaysPerWeek, 1)
	cellH := max((h-gridTop-1)/len(l.Weeks), 1)

	for d, cell := range l.Weeks[0] {
		drawText(s, d*cellW+1, 1, cellW-1, styleHeader, cell.Date.Format("Mon"))
	}
	for wk, row := range l.Weeks {
		for d, cell := range row {
			x, y := d*cellW, gridTop+wk*cellH
			st := styleBase
			switch {
			case cell.Today:
				st = styleToday
			case !cell.InMonth:
				st = styleDim
			}
			drawText(s, x+1, y, cellW-1, st, cell.Date.Format("2"))
			for i, ev := range cell.Events {
				if i >= cellH-1 {
					break
				}
				drawText(s, x+1, y+1+i, cellW-1, styleBase, ev.Start.Format("15:04")+" "+ev.Title)
			}
		}
	}
}

func drawPopup(s tcell.Screen, w, h int, p calendar.PopupContent) {
	lines := append([]string{p.Title, ""}, p.Lines...)
	inner := 0
	for _, ln := range lines {
		inner = max(inner, runewidth.StringWidth(ln))
	}
	inner = min(inner+2, max(w-4, 1))
	bw, bh := inner+2, len(lines)+2
	x0, y0 := max((w-bw)/2, 0), max((h-bh)/2, 0)

	for y := y0; y < y0+bh; y++ {
		fill(s, x0, y, bw, styleBase)
	}
	hz := strings.Repeat("─", bw-2)
	drawText(s, x0, y0, bw, styleBorder, "┌"+hz+"┐")
	drawText(s, x0, y0+bh-1, bw, styleBorder, "└"+hz+"┘")
	for i, ln := range lines {
		y := y0 + 1 + i
		s.SetContent(x0, y, '│', nil, styleBorder)
		s.SetContent(x0+bw-1, y, '│', nil, styleBorder)
		st := styleBase
		if i == 0 {
			st = styleHeader
		}
		drawText(s, x0+2, y, inner-2, st, ln)
	}
}

// cardStyle resolves the card colors. A dragged card is lightened.
func cardStyle(c calendar.Card, dragging bool) tcell.Style {
	bg, ok := calendar.ParseColor(c.Color)
	if !ok {
		bg, _ = calendar.ParseColor(calendar.DefaultCardColor)
	}
	if dragging {
		bg = bg.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.4).Clamped()
	}
	fg, ok := calendar.ParseColor(c.TextColor)
	if !ok {
		fg = colorful.Color{R: 1, G: 1, B: 1}
	}
	return styleBase.Background(toTcell(bg)).Foreground(toTcell(fg))
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func fill(s tcell.Screen, x, y, w int, st tcell.Style) {
	for i := 0; i < w; i++ {
		s.SetContent(x+i, y, ' ', nil, st)
	}
}

// drawText writes text truncated to maxW cells and returns the column after
// it.
func drawText(s tcell.Screen, x, y, maxW int, st tcell.Style, text string) int {
	if maxW <= 0 {
		return x
	}
	text = runewidth.Truncate(text, maxW, "…")
	for _, r := range text {
		s.SetContent(x, y, r, nil, st)
		x += runewidth.RuneWidth(r)
	}
	return x
}
