// Package appstate holds process-wide facts captured at startup: the start
// time and the build version. Values are read-only after New.
package appstate

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// DefaultVersion is used when no version is supplied at build time.
const DefaultVersion = "1.0.0"

// State describes the running process.
type State struct {
	StartTime time.Time
	Version   string

	now func() time.Time
}

// Option configures a State.
type Option func(*State)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// New captures the start time in UTC.
func New(version string, opts ...Option) *State {
	s := &State{Version: version, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.Version == "" {
		s.Version = DefaultVersion
	}
	s.StartTime = s.now().UTC()
	return s
}

// Uptime is the time elapsed since New.
func (s *State) Uptime() time.Duration {
	return s.now().Sub(s.StartTime)
}

// UptimeString formats Uptime for humans, e.g. "1 day, 2 hours, 5 minutes".
// Seconds are shown only while the process has been up for less than a minute.
func (s *State) UptimeString() string {
	return FormatUptime(s.Uptime())
}

// FormatUptime renders d as comma separated days, hours and minutes.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := int(d / (24 * time.Hour))
	hours := int(d / time.Hour % 24)
	minutes := int(d / time.Minute % 60)
	seconds := int(d / time.Second % 60)

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if d < time.Minute {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// LogAttrs returns the startup facts as slog attributes.
func (s *State) LogAttrs() []slog.Attr {
	hostname, _ := os.Hostname()
	return []slog.Attr{
		slog.String("version", s.Version),
		slog.Time("start_time", s.StartTime),
		slog.String("os", runtime.GOOS+"/"+runtime.GOARCH),
		slog.String("hostname", hostname),
		slog.Int("num_cpu", runtime.NumCPU()),
		slog.String("go_version", runtime.Version()),
	}
}
