package appstate_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogapi/pkg/appstate"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func TestNew(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	clock := &fakeClock{t: start}
	s := appstate.New("", appstate.WithClock(clock.Now))

	assert.Equal(t, appstate.DefaultVersion, s.Version)
	assert.Equal(t, time.UTC, s.StartTime.Location())
	assert.True(t, s.StartTime.Equal(start))

	clock.t = start.Add(26*time.Hour + 5*time.Minute + 10*time.Second)
	assert.Equal(t, 26*time.Hour+5*time.Minute+10*time.Second, s.Uptime())
	assert.Equal(t, "1 day, 2 hours, 5 minutes", s.UptimeString())
	assert.True(t, s.StartTime.Equal(start), "start time is captured once")
}

func TestFormatUptime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{42 * time.Second, "42 seconds"},
		{time.Minute, "1 minute"},
		{61 * time.Minute, "1 hour, 1 minute"},
		{2*time.Hour + 30*time.Second, "2 hours"},
		{48 * time.Hour, "2 days"},
		{-time.Second, "0 seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, appstate.FormatUptime(tt.in))
		})
	}
}

func TestLogAttrs(t *testing.T) {
	t.Parallel()

	s := appstate.New("2.3.4")
	attrs := s.LogAttrs()

	keys := make(map[string]slog.Value, len(attrs))
	for _, a := range attrs {
		keys[a.Key] = a.Value
	}
	require.Contains(t, keys, "version")
	assert.Equal(t, "2.3.4", keys["version"].String())
	assert.Contains(t, keys, "start_time")
	assert.Contains(t, keys, "num_cpu")
}
