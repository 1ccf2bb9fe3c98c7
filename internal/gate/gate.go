// Package gate holds the daily scoring window flag and the schedule that flips it.
package gate

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrInvalidClock is returned for malformed HH:MM values.
var ErrInvalidClock = errors.New("invalid time of day")

// Checker reports whether scoring is currently active.
type Checker interface {
	Active() bool
}

// Window is the process-wide scoring flag. The zero value is closed.
type Window struct {
	active atomic.Bool
}

// NewWindow returns a closed window.
func NewWindow() *Window {
	return &Window{}
}

// Active reports whether scoring is active.
func (w *Window) Active() bool {
	return w.active.Load()
}

// Open marks the window as active.
func (w *Window) Open() {
	w.active.Store(true)
}

// Close marks the window as inactive.
func (w *Window) Close() {
	w.active.Store(false)
}

// Set stores an explicit state.
func (w *Window) Set(active bool) {
	w.active.Store(active)
}

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("%w %q: %w", ErrInvalidClock, s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

// InWindow reports whether now falls inside [start, end).
// A window whose end is earlier than its start wraps past midnight.
func InWindow(now time.Time, start, end Clock) bool {
	m := now.Hour()*60 + now.Minute()
	s, e := start.minutes(), end.minutes()
	switch {
	case s == e:
		return false
	case s < e:
		return m >= s && m < e
	default:
		return m >= s || m < e
	}
}
