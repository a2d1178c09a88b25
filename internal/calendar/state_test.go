package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedcal/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewStateDefaults(t *testing.T) {
	now := at(5, 14, 0)
	s := NewState(WithClock(fixedClock(now)), WithLocation(time.UTC))

	assert.Equal(t, now, s.Anchor())
	assert.Equal(t, model.ViewWeek, s.View())
	assert.Zero(t, s.Width())
}

func TestNavigation(t *testing.T) {
	start := at(5, 14, 0)
	tests := []struct {
		mode model.ViewMode
		next time.Time
		prev time.Time
	}{
		{model.ViewDay, at(6, 14, 0), at(4, 14, 0)},
		{model.ViewWeek, at(12, 14, 0), time.Date(2025, time.February, 26, 14, 0, 0, 0, time.UTC)},
		{model.ViewMonth, time.Date(2025, time.April, 5, 14, 0, 0, 0, time.UTC), time.Date(2025, time.February, 5, 14, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.next, Next(start, tt.mode))
			assert.Equal(t, tt.prev, Previous(start, tt.mode))
		})
	}
}

func TestStateNextPreviousToday(t *testing.T) {
	now := at(5, 14, 0)
	s := NewState(WithClock(fixedClock(now)), WithLocation(time.UTC), WithAnchor(at(20, 8, 0)))

	s.Next()
	assert.Equal(t, 7*24*time.Hour, s.Anchor().Sub(at(20, 8, 0)))
	s.Previous()
	s.Previous()
	assert.Equal(t, at(13, 8, 0), s.Anchor())

	s.Today()
	assert.Equal(t, now, s.Anchor())
}

func TestSetWidthIgnoresNegative(t *testing.T) {
	s := NewState()
	s.SetWidth(700)
	s.SetWidth(-1)
	assert.Equal(t, 700.0, s.Width())
}

func TestLabel(t *testing.T) {
	d := at(5, 9, 0)
	assert.Equal(t, "March 5, 2025", Label(d, model.ViewDay))
	assert.Equal(t, "Mar 3 – Mar 9, 2025", Label(d, model.ViewWeek))
	assert.Equal(t, "March 2025", Label(d, model.ViewMonth))

	// Week crossing a year boundary takes the end year.
	nye := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Dec 29 – Jan 4, 2026", Label(nye, model.ViewWeek))
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, at(3, 0, 0), WeekStart(at(3, 0, 0)))
	assert.Equal(t, at(3, 0, 0), WeekStart(at(9, 23, 59)))
	assert.Equal(t, at(10, 0, 0), WeekStart(at(10, 1, 0)))
}

func TestProviderGuard(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrOutsideProvider)
	assert.PanicsWithError(t, ErrOutsideProvider.Error(), func() {
		MustFromContext(context.Background())
	})

	s := NewState()
	got, err := FromContext(NewContext(context.Background(), s))
	require.NoError(t, err)
	assert.Same(t, s, got)
}
