package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture creates a config with one local feed holding an event today
// at 10:00 UTC.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, time.UTC)

	feed := filepath.Join(dir, "feed.ics")
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//t//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:e1\r\nDTSTAMP:20250101T000000Z\r\n" +
		fmt.Sprintf("DTSTART:%s\r\n", start.Format("20060102T150405Z")) +
		fmt.Sprintf("DTEND:%s\r\n", start.Add(time.Hour).Format("20060102T150405Z")) +
		"SUMMARY:Intake\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	require.NoError(t, os.WriteFile(feed, []byte(body), 0o600))

	cfg := fmt.Sprintf(`timezone: UTC
log_level: error
cache_dir: %s
availability: []
sources:
  - id: clinic
    url: %s
`, filepath.Join(dir, "cache"), feed)
	path := filepath.Join(dir, "schedcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLayoutCommand(t *testing.T) {
	path := writeFixture(t)

	out, err := run(t, "layout", "--config", path, "--width", "700")
	require.NoError(t, err)

	var v struct {
		Mode string `json:"mode"`
		Time struct {
			Measured bool `json:"measured"`
			Cards    []struct {
				Event struct {
					ID    string `json:"id"`
					Title string `json:"title"`
				} `json:"event"`
				Rect struct {
					Top    float64 `json:"top"`
					Height float64 `json:"height"`
					Width  float64 `json:"width"`
				} `json:"rect"`
			} `json:"cards"`
		} `json:"time"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	assert.Equal(t, "week", v.Mode)
	assert.True(t, v.Time.Measured)
	require.Len(t, v.Time.Cards, 1)
	assert.Equal(t, "clinic/e1", v.Time.Cards[0].Event.ID)
	assert.Equal(t, 600.0, v.Time.Cards[0].Rect.Top)
	assert.Equal(t, 60.0, v.Time.Cards[0].Rect.Height)
	assert.Equal(t, 98.0, v.Time.Cards[0].Rect.Width)
}

func TestLayoutCommandUnmeasured(t *testing.T) {
	path := writeFixture(t)
	out, err := run(t, "layout", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"measured": false`)
	assert.Contains(t, out, `"cards": null`)
}

func TestLayoutCommandRejectsBadInput(t *testing.T) {
	path := writeFixture(t)
	_, err := run(t, "layout", "--config", path, "--view", "year")
	assert.Error(t, err)
	_, err = run(t, "layout", "--config", path, "--date", "03/04/2025")
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	path := writeFixture(t)
	png := filepath.Join(t.TempDir(), "week.png")

	_, err := run(t, "render", "--config", path, "--out", png, "--width", "350")
	require.NoError(t, err)
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, err = run(t, "render", "--config", path)
	assert.ErrorContains(t, err, "--out is required")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "schedcal version "+version+"\n", out)
}
