package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"schedcal/internal/calendar"
	"schedcal/internal/ics"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
	"schedcal/internal/raster"
)

//go:embed templates/calendar.html
var templateFS embed.FS

const pageGutter = 48

type modeButton struct {
	Mode   model.ViewMode
	Title  string
	Active bool
	Style  template.CSS
}

type pageData struct {
	Label  string
	Mode   model.ViewMode
	Modes  []modeButton
	Time   *calendar.TimeLayout
	Month  *calendar.MonthLayout
	Popup  *calendar.PopupContent
	Ready  bool
	Gutter int
}

func px(v float64) template.CSS {
	return template.CSS(strconv.FormatFloat(v, 'f', -1, 64) + "px")
}

func newPageTemplate(theme model.Theme, dragID string, drag calendar.Point) (*template.Template, error) {
	slot := func(name string) template.CSS {
		return template.CSS(theme.Style(model.Slot(name)).CSS())
	}
	cardStyle := func(c calendar.Card) template.CSS {
		r := c.Rect
		if c.Event.ID == dragID {
			r.Left += drag.X
			r.Top += drag.Y
		}
		s := "top: " + string(px(r.Top)) + "; left: " + string(px(r.Left)) +
			"; width: " + string(px(r.Width)) + "; height: " + string(px(r.Height)) +
			"; background-color: " + c.Color + "; color: " + c.TextColor
		if extra := theme.Style(model.SlotEventCard).CSS(); extra != "" {
			s += "; " + extra
		}
		return template.CSS(s)
	}
	return template.New("calendar.html").Funcs(template.FuncMap{
		"px":        px,
		"slot":      slot,
		"cardStyle": cardStyle,
	}).ParseFS(templateFS, "templates/calendar.html")
}

// handleCalendar renders the session's active view as HTML. Until the page
// has posted its measured grid width the root carries data-ready="false"
// and no cards.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.acquire(w, r)
	c := sess.cal
	v := c.View()
	dragID, drag := c.DragOffset()
	data := pageData{
		Label:  v.Label,
		Mode:   v.Mode,
		Time:   v.Time,
		Month:  v.Month,
		Ready:  v.Month != nil || (v.Time != nil && v.Time.Measured),
		Gutter: pageGutter,
	}
	if p, ok := c.Overlay().Content(); ok {
		data.Popup = &p
	}
	theme := c.Theme()
	sess.mu.Unlock()

	for _, m := range model.ViewModes {
		b := modeButton{Mode: m, Title: m.Title(), Active: m == v.Mode}
		if b.Active {
			b.Style = template.CSS(theme.Style(model.SlotViewButtonActive).CSS())
		} else {
			b.Style = template.CSS(theme.Style(model.SlotViewButton).CSS())
		}
		data.Modes = append(data.Modes, b)
	}

	tmpl, err := newPageTemplate(theme, dragID, drag)
	if err != nil {
		appLog.Error("calendar template parse failed", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		appLog.Error("calendar template render failed", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleICS exports the current agenda, reschedules applied.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export("schedcal", s.rt.Store.Events(), time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="schedcal.ics"`)
	_, _ = w.Write([]byte(body))
}

const defaultPreviewWidth = 840

// handlePreview renders the week around the session's anchor as PNG.
//
// GET /preview.png?width=N
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	width := float64(defaultPreviewWidth)
	if r.URL.Query().Has("width") {
		v, err := parseFloatParam(r, "width")
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "width must be a positive number")
			return
		}
		width = v
	}

	sess := s.sessions.acquire(w, r)
	c := sess.cal
	st := calendar.NewState(
		calendar.WithLocation(c.State().Location()),
		calendar.WithAnchor(c.State().Anchor()),
		calendar.WithClock(c.State().Now),
	)
	events := c.Events()
	dragID, drag := c.DragOffset()
	metrics, theme := c.Metrics(), c.Theme()
	sess.mu.Unlock()

	st.SetWidth(width)
	l := calendar.ComposeWeek(st, events, metrics, theme)

	var buf bytes.Buffer
	if err := raster.EncodePNG(&buf, &l, raster.Options{OffsetID: dragID, Offset: drag}); err != nil {
		appLog.Error("preview render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
