package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedcal/internal/app"
	"schedcal/internal/calendar"
	"schedcal/internal/config"
	"schedcal/internal/model"
)

var monday = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*client, *app.Runtime) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Availability = nil
	cfg.CacheDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	rt, err := app.New(cfg)
	require.NoError(t, err)
	rt.Store.Replace([]model.Event{{
		ID: "a", Title: "Intake",
		Start: monday.Add(10 * time.Hour), End: monday.Add(11 * time.Hour),
	}})

	clock := func() time.Time { return monday.Add(9 * time.Hour) }
	srv := httptest.NewServer(NewServer(rt, calendar.WithNow(clock)).Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}, rt
}

func (c *client) do(method, path, body string) (*http.Response, string) {
	c.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(b)
}

func (c *client) json(method, path, body string, out any) int {
	c.t.Helper()
	resp, b := c.do(method, path, body)
	if out != nil {
		require.NoError(c.t, json.Unmarshal([]byte(b), out), b)
	}
	return resp.StatusCode
}

type viewJSON struct {
	Mode  string `json:"mode"`
	Label string `json:"label"`
	Time  *struct {
		Measured bool `json:"measured"`
		Cards    []struct {
			Event model.Event   `json:"event"`
			Rect  calendar.Rect `json:"rect"`
			Color string        `json:"color"`
		} `json:"cards"`
	} `json:"time"`
	Month *struct {
		Weeks [][]json.RawMessage `json:"weeks"`
	} `json:"month"`
	State struct {
		Width float64 `json:"width"`
	} `json:"state"`
}

func TestHealth(t *testing.T) {
	c, _ := newTestServer(t, nil)
	resp, body := c.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
}

func TestBasicAuth(t *testing.T) {
	c, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	})

	resp, _ := c.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, "/api/view", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, c.base+"/api/view", nil)
	require.NoError(t, err)
	req.SetBasicAuth("u", "p")
	resp, err = c.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCalendarPageMeasureCycle(t *testing.T) {
	c, _ := newTestServer(t, nil)

	resp, body := c.do(http.MethodGet, "/calendar", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `data-ready="false"`)
	assert.Contains(t, body, "Mar 3 – Mar 9, 2025")
	assert.NotContains(t, body, `data-event="a"`)

	var v viewJSON
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/layout?width=700", "", &v))
	require.NotNil(t, v.Time)
	assert.True(t, v.Time.Measured)
	require.Len(t, v.Time.Cards, 1)
	assert.Equal(t, calendar.Rect{Top: 600, Height: 60, Left: 1, Width: 98}, v.Time.Cards[0].Rect)
	assert.Equal(t, calendar.DefaultCardColor, v.Time.Cards[0].Color)

	_, body = c.do(http.MethodGet, "/calendar", "")
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, `data-event="a"`)
	assert.Contains(t, body, "top: 600px; left: 1px; width: 98px; height: 60px")
	assert.Contains(t, body, "Intake")
}

func TestLayoutRejectsBadWidth(t *testing.T) {
	c, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/layout?width=abc", "", nil))
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/layout?width=-1", "", nil))
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/layout", "", nil))
}

func TestNavigationAndMode(t *testing.T) {
	c, _ := newTestServer(t, nil)

	var v viewJSON
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/nav?to=next", "", &v))
	assert.Equal(t, "Mar 10 – Mar 16, 2025", v.Label)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/nav?to=today", "", &v))
	assert.Equal(t, "Mar 3 – Mar 9, 2025", v.Label)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/mode?view=month", "", &v))
	assert.Equal(t, "month", v.Mode)
	assert.Equal(t, "March 2025", v.Label)
	require.NotNil(t, v.Month)
	assert.Len(t, v.Month.Weeks, 6)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/nav?to=prev", "", &v))
	assert.Equal(t, "February 2025", v.Label)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/mode?view=day", "", &v))
	assert.Equal(t, "February 3, 2025", v.Label)

	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/mode?view=year", "", nil))
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/nav?to=sideways", "", nil))

	_, body := c.do(http.MethodGet, "/calendar", "")
	assert.Contains(t, body, `class="active"`)
}

func TestSessionsAreIndependent(t *testing.T) {
	c, _ := newTestServer(t, nil)
	var v viewJSON
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/nav?to=next", "", &v))

	other := &client{t: t, base: c.base, http: &http.Client{}}
	require.Equal(t, http.StatusOK, other.json(http.MethodGet, "/api/view", "", &v))
	assert.Equal(t, "Mar 3 – Mar 9, 2025", v.Label)
}

type pointerJSON struct {
	State      string         `json:"state"`
	Kind       string         `json:"kind"`
	Tap        bool           `json:"tap"`
	Drop       *calendar.Drop `json:"drop"`
	Reschedule *struct {
		Accepted bool      `json:"accepted"`
		To       time.Time `json:"to"`
	} `json:"reschedule"`
}

func TestPointerTapOpensPopup(t *testing.T) {
	c, _ := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/layout?width=700", "", nil))

	var p pointerJSON
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/pointer", `{"event_id":"a","phase":"down","x":10,"y":10}`, &p))
	assert.Equal(t, "pressed", p.State)
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/pointer", `{"phase":"up","x":11,"y":11}`, &p))
	assert.True(t, p.Tap)
	assert.Equal(t, "tap", p.Kind)
	assert.Equal(t, "idle", p.State)
	assert.Nil(t, p.Drop)

	var popup struct {
		Visible bool `json:"visible"`
		Content struct {
			Title string   `json:"title"`
			Lines []string `json:"lines"`
		} `json:"content"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/popup", "", &popup))
	assert.True(t, popup.Visible)
	assert.Equal(t, "Intake", popup.Content.Title)
	assert.Equal(t, []string{"Mon Mar 3", "10:00 – 11:00"}, popup.Content.Lines)

	_, body := c.do(http.MethodGet, "/calendar", "")
	assert.Contains(t, body, `class="popup"`)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/popup/close", "", nil))
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/popup", "", &popup))
	assert.False(t, popup.Visible)

	_, metricsBody := c.do(http.MethodGet, "/metrics", "")
	assert.Contains(t, metricsBody, `schedcal_gestures_total{kind="tap"} 1`)
}

func TestPointerDragReschedules(t *testing.T) {
	c, rt := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/layout?width=700", "", nil))

	var p pointerJSON
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/pointer", `{"event_id":"a","phase":"down","x":0,"y":0}`, &p))
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/pointer", `{"phase":"move","x":110,"y":65}`, &p))
	assert.Equal(t, "dragging", p.State)
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/pointer", `{"phase":"up","x":110,"y":65}`, &p))

	assert.Equal(t, "drag_end", p.Kind)
	assert.False(t, p.Tap)
	require.NotNil(t, p.Drop)
	assert.Equal(t, 1, p.Drop.DayIndex)
	assert.Equal(t, 11, p.Drop.Hour)
	require.NotNil(t, p.Reschedule)
	assert.True(t, p.Reschedule.Accepted)

	want := time.Date(2025, time.March, 4, 11, 0, 0, 0, time.UTC)
	assert.True(t, rt.Store.Events()[0].Start.Equal(want))

	var evs struct {
		Events  []model.Event `json:"events"`
		History []struct {
			EventID string `json:"event_id"`
		} `json:"history"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/events", "", &evs))
	require.Len(t, evs.Events, 1)
	assert.True(t, evs.Events[0].Start.Equal(want))
	require.Len(t, evs.History, 1)

	var v viewJSON
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/view", "", &v))
	require.Len(t, v.Time.Cards, 1)
	assert.Equal(t, 101.0, v.Time.Cards[0].Rect.Left)

	_, metricsBody := c.do(http.MethodGet, "/metrics", "")
	assert.Contains(t, metricsBody, `schedcal_reschedules_total{result="accepted"} 1`)
}

func TestPointerErrors(t *testing.T) {
	c, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, c.json(http.MethodPost, "/api/pointer", `{"event_id":"a","phase":"down"}`, nil),
		"unmeasured grid has no cards")

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/layout?width=700", "", nil))
	assert.Equal(t, http.StatusNotFound, c.json(http.MethodPost, "/api/pointer", `{"event_id":"zzz","phase":"down"}`, nil))
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/pointer", `{"phase":"hover"}`, nil))
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/pointer", `not json`, nil))

	var p pointerJSON
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/pointer", `{"event_id":"a","phase":"down"}`, &p))
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/pointer", `{"phase":"cancel"}`, &p))
	assert.Equal(t, "idle", p.State)
}

func TestICSAndPreview(t *testing.T) {
	c, _ := newTestServer(t, nil)

	resp, body := c.do(http.MethodGet, "/calendar.ics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")
	assert.Contains(t, body, "SUMMARY:Intake")

	resp, body = c.do(http.MethodGet, "/preview.png?width=350", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))

	resp, _ = c.do(http.MethodGet, "/preview.png?width=0", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsDisabled(t *testing.T) {
	c, _ := newTestServer(t, func(cfg *config.Config) { cfg.Metrics = false })
	resp, _ := c.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSweepDropsIdleSessions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Availability = nil
	rt, err := app.New(cfg)
	require.NoError(t, err)

	tbl := newSessionTable(rt, newMetrics())
	idle := tbl.create()
	fresh := tbl.create()
	idle.lastSeen = time.Now().Add(-2 * sessionIdle)

	tbl.mu.Lock()
	tbl.sweepLocked()
	tbl.mu.Unlock()

	assert.NotContains(t, tbl.m, idle.id)
	assert.Contains(t, tbl.m, fresh.id)
}

func TestAcquireReplacesSweptSession(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Availability = nil
	rt, err := app.New(cfg)
	require.NoError(t, err)

	tbl := newSessionTable(rt, newMetrics())
	old := tbl.create()
	old.lastSeen = time.Now().Add(-2 * sessionIdle)
	tbl.mu.Lock()
	tbl.sweepLocked()
	tbl.mu.Unlock()
	assert.False(t, tbl.live(old))

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: old.id})
	rec := httptest.NewRecorder()
	s := tbl.acquire(rec, req)
	defer s.mu.Unlock()

	assert.NotEqual(t, old.id, s.id)
	assert.True(t, tbl.live(s))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, s.id, cookies[0].Value)
}
