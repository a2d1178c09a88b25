package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"schedcal/internal/agenda"
	"schedcal/internal/calendar"
	"schedcal/internal/model"
)

type stateDTO struct {
	Anchor   time.Time      `json:"anchor"`
	Mode     model.ViewMode `json:"mode"`
	Width    float64        `json:"width"`
	Location string         `json:"location"`
}

type dragDTO struct {
	EventID   string         `json:"event_id"`
	Offset    calendar.Point `json:"offset"`
	Animating bool           `json:"animating"`
}

type viewResponse struct {
	calendar.View
	State stateDTO               `json:"state"`
	Drag  *dragDTO               `json:"drag,omitempty"`
	Popup *calendar.PopupContent `json:"popup,omitempty"`
}

func snapshot(c *calendar.Calendar) viewResponse {
	st := c.State()
	resp := viewResponse{
		View: c.View(),
		State: stateDTO{
			Anchor:   st.Anchor(),
			Mode:     st.View(),
			Width:    st.Width(),
			Location: st.Location().String(),
		},
	}
	if id, off := c.DragOffset(); id != "" {
		resp.Drag = &dragDTO{EventID: id, Offset: off, Animating: c.Gesture().Animating()}
	}
	if p, ok := c.Overlay().Content(); ok {
		resp.Popup = &p
	}
	return resp
}

// handleView returns the composed active view with its state.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.acquire(w, r)
	defer sess.mu.Unlock()
	writeJSON(w, http.StatusOK, snapshot(sess.cal))
}

// handleNav moves the anchor.
//
// POST /api/nav?to=next|prev|today
func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.acquire(w, r)
	defer sess.mu.Unlock()

	st := sess.cal.State()
	switch r.URL.Query().Get("to") {
	case "next":
		st.Next()
	case "prev", "previous":
		st.Previous()
	case "today":
		st.Today()
	default:
		writeError(w, http.StatusBadRequest, "to must be next, prev or today")
		return
	}
	writeJSON(w, http.StatusOK, snapshot(sess.cal))
}

// handleMode switches the active view.
//
// POST /api/mode?view=day|week|month
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	v, err := model.ParseViewMode(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.sessions.acquire(w, r)
	defer sess.mu.Unlock()

	sess.cal.State().SetView(v)
	writeJSON(w, http.StatusOK, snapshot(sess.cal))
}

// handleLayout publishes the grid width measured by the page.
//
// POST /api/layout?width=N
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	width, err := parseFloatParam(r, "width")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if width < 0 {
		writeError(w, http.StatusBadRequest, "width must not be negative")
		return
	}
	sess := s.sessions.acquire(w, r)
	defer sess.mu.Unlock()

	sess.cal.Layout(width)
	writeJSON(w, http.StatusOK, snapshot(sess.cal))
}

type pointerRequest struct {
	EventID string  `json:"event_id"`
	Phase   string  `json:"phase"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type pointerResponse struct {
	State      string         `json:"state"`
	Kind       string         `json:"kind,omitempty"`
	Tap        bool           `json:"tap"`
	Drop       *calendar.Drop `json:"drop,omitempty"`
	Reschedule *agenda.Move   `json:"reschedule,omitempty"`
}

// handlePointer feeds one pointer event into the session's gesture machine.
//
// POST /api/pointer {"event_id": "...", "phase": "down|move|up|cancel", "x": 0, "y": 0}
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid pointer payload")
		return
	}

	sess := s.sessions.acquire(w, r)
	defer sess.mu.Unlock()
	c := sess.cal

	resp := pointerResponse{}
	switch req.Phase {
	case "down":
		if req.EventID == "" {
			writeError(w, http.StatusBadRequest, "event_id is required")
			return
		}
		if err := c.PointerDown(req.EventID, req.X, req.Y); err != nil {
			if errors.Is(err, calendar.ErrNoCard) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case "move":
		c.PointerMove(req.X, req.Y)
	case "up":
		sess.lastMove = nil
		out := c.PointerUp(req.X, req.Y)
		resp.Kind = out.Kind.String()
		resp.Tap = out.Kind == calendar.GestureTap
		resp.Drop = out.Drop
		resp.Reschedule = sess.lastMove
		s.metrics.gestures.WithLabelValues(resp.Kind).Inc()
	case "cancel":
		c.PointerCancel()
	default:
		writeError(w, http.StatusBadRequest, "phase must be down, move, up or cancel")
		return
	}
	resp.State = c.Gesture().State().String()
	writeJSON(w, http.StatusOK, resp)
}

type popupResponse struct {
	Visible bool                   `json:"visible"`
	Event   *model.Event           `json:"event,omitempty"`
	Content *calendar.PopupContent `json:"content,omitempty"`
}

func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.acquire(w, r)
	defer sess.mu.Unlock()

	resp := popupResponse{}
	if ev, ok := sess.cal.Overlay().Event(); ok {
		resp.Visible = true
		resp.Event = &ev
		if p, ok := sess.cal.Overlay().Content(); ok {
			resp.Content = &p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePopupClose(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.acquire(w, r)
	defer sess.mu.Unlock()

	sess.cal.Overlay().Close()
	writeJSON(w, http.StatusOK, popupResponse{})
}

type eventsResponse struct {
	Events       []model.Event            `json:"events"`
	Availability []model.AvailabilitySlot `json:"availability"`
	History      []agenda.Move            `json:"history"`
	Version      uint64                   `json:"version"`
	Timezone     string                   `json:"timezone"`
}

// handleEvents returns the host's agenda as supplied to the views.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	store := s.rt.Store
	resp := eventsResponse{
		Events:       store.Events(),
		Availability: store.Availability(),
		History:      store.History(),
		Version:      store.Version(),
		Timezone:     s.rt.Location.String(),
	}
	if resp.Events == nil {
		resp.Events = []model.Event{}
	}
	if resp.Availability == nil {
		resp.Availability = []model.AvailabilitySlot{}
	}
	if resp.History == nil {
		resp.History = []agenda.Move{}
	}
	writeJSON(w, http.StatusOK, resp)
}
