package ratelimit

import (
	"fmt"
	"strconv"
	"time"
)

// Window is the span a quota counter covers.
type Window string

const (
	// WindowMinute counts per UTC minute index (unix seconds / 60).
	WindowMinute Window = "minute"
	// WindowDay counts per UTC calendar date.
	WindowDay Window = "day"
)

// Valid reports whether w is a known window kind.
func (w Window) Valid() bool {
	return w == WindowMinute || w == WindowDay
}

// ID returns the identifier of the window containing t.
func (w Window) ID(t time.Time) string {
	t = t.UTC()
	if w == WindowMinute {
		return strconv.FormatInt(t.Unix()/60, 10)
	}
	return t.Format("2006-01-02")
}

// End returns the first instant after the window containing t.
func (w Window) End(t time.Time) time.Time {
	t = t.UTC()
	if w == WindowMinute {
		return t.Truncate(time.Minute).Add(time.Minute)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// Key returns the counter key for api in the window containing t.
func Key(api string, w Window, t time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", api, w, w.ID(t))
}
