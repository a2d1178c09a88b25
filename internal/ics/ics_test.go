package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:single@test\r\n" +
	"DTSTAMP:20250301T000000Z\r\n" +
	"DTSTART:20250304T100000Z\r\n" +
	"DTEND:20250304T103000Z\r\n" +
	"SUMMARY:Review\r\n" +
	"LOCATION:Room 4\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:daily@test\r\n" +
	"DTSTAMP:20250301T000000Z\r\n" +
	"DTSTART:20250303T080000Z\r\n" +
	"DTEND:20250303T081500Z\r\n" +
	"RRULE:FREQ=DAILY;COUNT=5\r\n" +
	"EXDATE:20250305T080000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:daily@test\r\n" +
	"DTSTAMP:20250301T000000Z\r\n" +
	"RECURRENCE-ID:20250306T080000Z\r\n" +
	"DTSTART:20250306T090000Z\r\n" +
	"DTEND:20250306T091500Z\r\n" +
	"SUMMARY:Standup (late)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20250301T000000Z\r\n" +
	"DTSTART:20250306T090000Z\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func march(d, h, m int) time.Time {
	return time.Date(2025, time.March, d, h, m, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	src := Source{ID: "clinic", Color: "#00aa00"}
	vevents, err := Parse(src, []byte(sampleICS))
	require.NoError(t, err)
	require.Len(t, vevents, 3, "VEVENT without UID is skipped")

	single := vevents[0]
	assert.Equal(t, "single@test", single.UID)
	assert.Equal(t, "Review", single.Summary)
	assert.Equal(t, "Room 4", single.Location)
	assert.True(t, single.Start.Equal(march(4, 10, 0)))
	assert.False(t, single.AllDay)

	series := vevents[1]
	assert.Equal(t, "FREQ=DAILY;COUNT=5", series.RRule)
	require.Len(t, series.ExDates, 1)
	assert.True(t, vevents[2].IsOverride())
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(Source{ID: "x"}, nil)
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	vevents, err := Parse(Source{ID: "clinic", Color: "#00aa00"}, []byte(sampleICS))
	require.NoError(t, err)

	events, err := Expand(vevents, Window{Start: march(3, 0, 0), End: march(10, 0, 0), Location: time.UTC})
	require.NoError(t, err)

	titles := map[string]time.Time{}
	for _, ev := range events {
		titles[ev.ID] = ev.Start
		assert.Equal(t, "#00aa00", ev.Color)
		assert.Equal(t, "clinic", ev.SourceID)
	}

	assert.Contains(t, titles, "clinic/single@test")
	assert.Contains(t, titles, "clinic/daily@test/20250303T080000Z")
	assert.NotContains(t, titles, "clinic/daily@test/20250305T080000Z", "EXDATE removes the instance")
	// Overridden instance moves to 09:00 and keeps its RECURRENCE-ID key.
	assert.Equal(t, march(6, 9, 0), titles["clinic/daily@test/20250306T080000Z"])
	assert.Len(t, events, 5)
}

func TestExpandWindow(t *testing.T) {
	vevents, err := Parse(Source{ID: "c"}, []byte(sampleICS))
	require.NoError(t, err)

	events, err := Expand(vevents, Window{Start: march(4, 9, 0), End: march(4, 11, 0), Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Review", events[0].Title)

	_, err = Expand(vevents, Window{Start: march(5, 0, 0), End: march(4, 0, 0)})
	assert.Error(t, err)
}

func vcal(body string) []byte {
	return []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" + body + "END:VCALENDAR\r\n")
}

func TestExpandKeepsLatestSequence(t *testing.T) {
	body := "BEGIN:VEVENT\r\nUID:u1\r\nDTSTAMP:20250301T000000Z\r\nSEQUENCE:1\r\n" +
		"DTSTART:20250304T110000Z\r\nDTEND:20250304T120000Z\r\nSUMMARY:new\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:u1\r\nDTSTAMP:20250301T000000Z\r\nSEQUENCE:0\r\n" +
		"DTSTART:20250304T100000Z\r\nDTEND:20250304T110000Z\r\nSUMMARY:old\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:u2\r\nDTSTAMP:20250301T000000Z\r\n" +
		"DTSTART:20250305T100000Z\r\nDTEND:20250305T110000Z\r\nSUMMARY:first\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:u2\r\nDTSTAMP:20250301T000000Z\r\n" +
		"DTSTART:20250305T130000Z\r\nDTEND:20250305T140000Z\r\nSUMMARY:second\r\nEND:VEVENT\r\n"
	vevents, err := Parse(Source{ID: "s"}, vcal(body))
	require.NoError(t, err)
	require.Len(t, vevents, 4)

	events, err := Expand(vevents, Window{Start: march(1, 0, 0), End: march(10, 0, 0), Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, events, 2)

	byID := map[string]string{}
	for _, ev := range events {
		byID[ev.ID] = ev.Title
	}
	assert.Equal(t, "new", byID["s/u1"], "higher SEQUENCE wins regardless of order")
	assert.Equal(t, "second", byID["s/u2"], "later VEVENT wins on equal SEQUENCE")
}

func TestExpandOverrideMovedIntoWindow(t *testing.T) {
	body := "BEGIN:VEVENT\r\nUID:weekly\r\nDTSTAMP:20250301T000000Z\r\n" +
		"DTSTART:20250224T080000Z\r\nDTEND:20250224T090000Z\r\nRRULE:FREQ=WEEKLY;COUNT=4\r\n" +
		"SUMMARY:Rounds\r\nEND:VEVENT\r\n" +
		// Feb 24 instance moved to Mar 5.
		"BEGIN:VEVENT\r\nUID:weekly\r\nDTSTAMP:20250301T000000Z\r\nRECURRENCE-ID:20250224T080000Z\r\n" +
		"DTSTART:20250305T150000Z\r\nDTEND:20250305T160000Z\r\nSUMMARY:Rounds (moved)\r\nEND:VEVENT\r\n" +
		// Override whose series is not in the feed.
		"BEGIN:VEVENT\r\nUID:orphan\r\nDTSTAMP:20250301T000000Z\r\nRECURRENCE-ID:20250306T080000Z\r\n" +
		"DTSTART:20250306T100000Z\r\nDTEND:20250306T110000Z\r\nSUMMARY:Lone\r\nEND:VEVENT\r\n"
	vevents, err := Parse(Source{ID: "s"}, vcal(body))
	require.NoError(t, err)

	events, err := Expand(vevents, Window{Start: march(3, 0, 0), End: march(10, 0, 0), Location: time.UTC})
	require.NoError(t, err)

	byID := map[string]time.Time{}
	for _, ev := range events {
		byID[ev.ID] = ev.Start
	}
	assert.Equal(t, march(3, 8, 0), byID["s/weekly/20250303T080000Z"])
	assert.Equal(t, march(5, 15, 0), byID["s/weekly/20250224T080000Z"])
	assert.Equal(t, march(6, 10, 0), byID["s/orphan/20250306T080000Z"])
	assert.Len(t, events, 3)

	// Moved away from a window that contains its RECURRENCE-ID: not shown.
	events, err = Expand(vevents, Window{Start: march(24, 0, 0).AddDate(0, -1, 0), End: march(25, 0, 0).AddDate(0, -1, 0), Location: time.UTC})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetchCachesAndRevalidates(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), time.Second)
	src := Source{ID: "remote", URL: srv.URL + "/feed.ics?token=secret"}

	res, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, res.FromCache)

	res, err = f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, sampleICS, string(res.Body))
	assert.Equal(t, 2, hits)
}

func TestFetchFallsBackToCache(t *testing.T) {
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), time.Second)
	src := Source{ID: "remote", URL: srv.URL}
	_, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)

	fail = true
	res, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	_, errs := f.FetchAll(context.Background(), []Source{{ID: "other", URL: srv.URL + "/other"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "other")
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(sampleICS), 0o600))

	f := NewFetcher(t.TempDir(), 0)
	events, errs := Load(context.Background(), f, []Source{{ID: "local", URL: "file://" + path}},
		Window{Start: march(3, 0, 0), End: march(10, 0, 0), Location: time.UTC})
	assert.Empty(t, errs)
	assert.Len(t, events, 5)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...(redacted)", RedactURL("https://cal.example.com/private/abc.ics?k=1"))
	assert.Equal(t, "/tmp/x.ics", RedactURL("/tmp/x.ics"))
}

func TestExport(t *testing.T) {
	vevents, err := Parse(Source{ID: "c", Color: "#123456"}, []byte(sampleICS))
	require.NoError(t, err)
	events, err := Expand(vevents, Window{Start: march(4, 0, 0), End: march(5, 0, 0), Location: time.UTC})
	require.NoError(t, err)

	out := Export("Clinic", events, march(1, 0, 0))
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "SUMMARY:Review")
	assert.Contains(t, out, "COLOR:#123456")

	back, err := Parse(Source{ID: "again"}, []byte(out))
	require.NoError(t, err)
	assert.Len(t, back, len(events))
}
