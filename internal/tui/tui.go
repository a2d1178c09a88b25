// Package tui hosts the calendar in a terminal. One hour is HourHeight rows
// and columns are measured in cells, so the widget's geometry maps straight
// onto the cell grid.
package tui

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"schedcal/internal/agenda"
	"schedcal/internal/app"
	"schedcal/internal/calendar"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

const (
	// HourRows is the number of terminal rows per hour.
	HourRows = 2
	// GutterWidth holds the "23:00 " labels.
	GutterWidth = 6
	// gridTop is the first grid row; rows 0 and 1 are the header bar and
	// the day labels.
	gridTop = 2
	// DefaultScrollHour is the first hour visible on mount.
	DefaultScrollHour = 8

	frameInterval = 16 * time.Millisecond
	tickInterval  = 30 * time.Second
)

// UI drives one calendar instance from a tcell event loop. It is not safe
// for concurrent use; everything runs on the loop goroutine.
type UI struct {
	screen tcell.Screen
	rt     *app.Runtime
	cal    *calendar.Calendar

	version uint64
	scroll  int
	pressed bool
	status  string
	frame   *time.Timer
}

// New mounts a calendar for the terminal. Extra options apply after the
// terminal metrics (tests inject clocks this way).
func New(screen tcell.Screen, rt *app.Runtime, opts ...calendar.Option) *UI {
	u := &UI{screen: screen, rt: rt, scroll: DefaultScrollHour * HourRows}
	hooks := calendar.Hooks{
		OnEventPress: calendar.PressFunc(func(ev model.Event) {
			u.status = ev.Title
		}),
		OnEventDragEnd: rt.RescheduleHook(u.afterReschedule),
	}
	base := []calendar.Option{
		calendar.WithMetrics(calendar.Metrics{HourHeight: HourRows, Margin: 1}),
		calendar.WithDragThreshold(1),
	}
	u.cal = rt.NewCalendar(hooks, append(base, opts...)...)
	u.version = rt.Store.Version()
	return u
}

// Calendar exposes the mounted instance.
func (u *UI) Calendar() *calendar.Calendar { return u.cal }

func (u *UI) afterReschedule(m agenda.Move, err error) {
	switch {
	case err != nil:
		u.status = "move failed: " + err.Error()
	case m.Accepted:
		u.status = "moved to " + m.To.In(u.cal.State().Location()).Format("Mon Jan 2 15:04")
	default:
		u.status = "move rejected: " + m.Reason
	}
	u.sync()
}

// sync re-supplies events after the store changed.
func (u *UI) sync() {
	v := u.rt.Store.Version()
	if v == u.version {
		return
	}
	u.cal.SetEvents(u.rt.Store.Events())
	u.cal.SetAvailability(u.rt.Store.Availability())
	u.version = v
}

// Run polls events until ctx is done or the user quits.
func (u *UI) Run(ctx context.Context) error {
	u.screen.EnableMouse()
	u.screen.Clear()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := u.screen.PollEvent()
			if ev == nil {
				// Screen finalized.
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	u.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			u.sync()
			u.Draw()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !u.HandleEvent(ev) {
				appLog.Debug("terminal host quit")
				return nil
			}
			u.Draw()
			u.scheduleFrame()
		}
	}
}

// scheduleFrame keeps redrawing while a card animates back.
func (u *UI) scheduleFrame() {
	if !u.cal.Gesture().Animating() || u.frame != nil {
		return
	}
	u.frame = time.AfterFunc(frameInterval, func() {
		_ = u.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
}

// HandleEvent applies one terminal event. It returns false to quit.
func (u *UI) HandleEvent(ev tcell.Event) bool {
	u.sync()
	switch ev := ev.(type) {
	case *tcell.EventInterrupt:
		u.frame = nil
	case *tcell.EventResize:
		u.screen.Sync()
	case *tcell.EventKey:
		return u.handleKey(ev)
	case *tcell.EventMouse:
		u.handleMouse(ev)
	}
	return true
}

func (u *UI) handleKey(ev *tcell.EventKey) bool {
	st := u.cal.State()
	switch ev.Key() {
	case tcell.KeyCtrlC:
		return false
	case tcell.KeyEscape:
		if u.pressed {
			u.cal.PointerCancel()
			u.pressed = false
			return true
		}
		u.cal.Overlay().Close()
		return true
	case tcell.KeyRight:
		st.Next()
	case tcell.KeyLeft:
		st.Previous()
	case tcell.KeyUp:
		u.scrollBy(-1)
	case tcell.KeyDown:
		u.scrollBy(1)
	case tcell.KeyPgUp:
		u.scrollBy(-u.visibleRows())
	case tcell.KeyPgDn:
		u.scrollBy(u.visibleRows())
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'n':
			st.Next()
		case 'p':
			st.Previous()
		case 't':
			st.Today()
		case 'd':
			st.SetView(model.ViewDay)
		case 'w':
			st.SetView(model.ViewWeek)
		case 'm':
			st.SetView(model.ViewMonth)
		case 'k':
			u.scrollBy(-1)
		case 'j':
			u.scrollBy(1)
		}
	}
	return true
}

func (u *UI) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	down := ev.Buttons()&tcell.Button1 != 0

	switch {
	case down && !u.pressed:
		if u.cal.Overlay().Visible() {
			u.cal.Overlay().Close()
			return
		}
		id, ok := u.cardAt(x, y)
		if !ok {
			return
		}
		if err := u.cal.PointerDown(id, float64(x), float64(y)); err != nil {
			appLog.Debug("pointer down ignored", "id", id, "err", err.Error())
			return
		}
		u.pressed = true
	case down && u.pressed:
		u.cal.PointerMove(float64(x), float64(y))
	case !down && u.pressed:
		u.pressed = false
		u.cal.PointerUp(float64(x), float64(y))
	default:
		switch {
		case ev.Buttons()&tcell.WheelUp != 0:
			u.scrollBy(-1)
		case ev.Buttons()&tcell.WheelDown != 0:
			u.scrollBy(1)
		}
	}
}

// cardAt hit-tests the composed cards at a screen cell.
func (u *UI) cardAt(x, y int) (string, bool) {
	v := u.cal.View()
	if v.Time == nil || y < gridTop {
		return "", false
	}
	gx := float64(x-GutterWidth) + 0.5
	gy := float64(y-gridTop+u.scroll) + 0.5
	for i := len(v.Time.Cards) - 1; i >= 0; i-- {
		c := v.Time.Cards[i]
		if c.Rect.Contains(gx, gy) {
			return c.Event.ID, true
		}
	}
	return "", false
}

func (u *UI) visibleRows() int {
	_, h := u.screen.Size()
	// Header bar, day labels and status line.
	return max(h-gridTop-1, 1)
}

func (u *UI) scrollBy(n int) {
	limit := max(calendar.HoursPerDay*HourRows-u.visibleRows(), 0)
	u.scroll = min(max(u.scroll+n, 0), limit)
}

// cellRect snaps a grid rect to terminal cells.
func cellRect(r calendar.Rect, off calendar.Point) (x, y, w, h int) {
	x = int(math.Round(r.Left + off.X))
	y = int(math.Round(r.Top + off.Y))
	w = int(math.Round(r.Width))
	h = max(int(math.Round(r.Height)), 1)
	return
}

func hourLabel(h int) string {
	return fmt.Sprintf("%5s ", fmt.Sprintf("%d:00", h))
}
