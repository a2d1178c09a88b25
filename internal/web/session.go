package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"schedcal/internal/agenda"
	"schedcal/internal/app"
	"schedcal/internal/calendar"
	appLog "schedcal/internal/log"
)

const (
	sessionCookie = "schedcal_session"
	sessionIdle   = 12 * time.Hour
)

// session is one browser's mounted calendar. mu serializes every request
// touching cal.
type session struct {
	id string
	mu sync.Mutex

	cal      *calendar.Calendar
	version  uint64
	lastMove *agenda.Move
	lastSeen time.Time
}

type sessionTable struct {
	mu sync.RWMutex
	m  map[string]*session

	rt      *app.Runtime
	metrics *metrics
	now     func() time.Time
	opts    []calendar.Option
}

func newSessionTable(rt *app.Runtime, m *metrics, opts ...calendar.Option) *sessionTable {
	return &sessionTable{
		m:       make(map[string]*session),
		rt:      rt,
		metrics: m,
		now:     time.Now,
		opts:    opts,
	}
}

// acquire returns the caller's session, creating one (and setting the
// cookie) when the request carries no known ID. The session is returned
// locked and synced with the store; callers must unlock it.
func (t *sessionTable) acquire(w http.ResponseWriter, r *http.Request) *session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}

	for {
		t.mu.RLock()
		s := t.m[id]
		t.mu.RUnlock()

		if s == nil {
			s = t.create()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    s.id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		s.mu.Lock()
		if !t.live(s) {
			// Swept between lookup and lock.
			s.mu.Unlock()
			id = ""
			continue
		}
		s.lastSeen = t.now()
		s.sync(t.rt.Store)
		return s
	}
}

func (t *sessionTable) live(s *session) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.m[s.id] == s
}

func (t *sessionTable) create() *session {
	s := &session{id: uuid.NewString(), lastSeen: t.now()}
	hooks := calendar.Hooks{
		OnEventDragEnd: t.rt.RescheduleHook(func(m agenda.Move, err error) {
			switch {
			case err != nil:
				t.metrics.reschedules.WithLabelValues("error").Inc()
			case m.Accepted:
				t.metrics.reschedules.WithLabelValues("accepted").Inc()
			default:
				t.metrics.reschedules.WithLabelValues("rejected").Inc()
			}
			if err == nil {
				mv := m
				s.lastMove = &mv
			}
			// Runs inside PointerUp with s.mu held.
			s.sync(t.rt.Store)
		}),
	}
	s.cal = t.rt.NewCalendar(hooks, t.opts...)
	s.version = t.rt.Store.Version()

	t.mu.Lock()
	t.sweepLocked()
	t.m[s.id] = s
	n := len(t.m)
	t.mu.Unlock()

	t.metrics.sessions.Set(float64(n))
	appLog.Debug("session created", "id", s.id)
	return s
}

// sweepLocked drops idle sessions. Sessions in use are skipped.
func (t *sessionTable) sweepLocked() {
	cutoff := t.now().Add(-sessionIdle)
	for id, s := range t.m {
		if !s.mu.TryLock() {
			continue
		}
		idle := s.lastSeen.Before(cutoff)
		if idle {
			s.cal.Unmount()
			delete(t.m, id)
		}
		s.mu.Unlock()
	}
}

// sync re-supplies events when the store changed since the last request.
func (s *session) sync(store *agenda.Store) {
	v := store.Version()
	if v == s.version {
		return
	}
	s.cal.SetEvents(store.Events())
	s.cal.SetAvailability(store.Availability())
	s.version = v
}
