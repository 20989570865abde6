package timecalc

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day with second precision, stored as
// seconds since midnight.
type Clock int

// Midnight is the first second of the day; LastSecond the last.
const (
	Midnight   Clock = 0
	LastSecond Clock = 24*3600 - 1
)

// clockLayouts are tried in order by ParseClock. The 12-hour forms match the
// way the daily view renders start and stop times.
var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"03:04:05 PM",
	"3:04:05 PM",
	"03:04 PM",
	"3:04 PM",
}

// ParseClock parses a time of day in HH:MM:SS, HH:MM or 12-hour AM/PM form.
func ParseClock(s string) (Clock, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return 0, fmt.Errorf("empty time of day")
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q (want HH:MM:SS)", s)
}

// MustParseClock is like ParseClock but panics on malformed input.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Hour returns the hour component (0-23).
func (c Clock) Hour() int { return int(c) / 3600 }

func (c Clock) parts() (int, int, int) {
	n := int(c)
	return n / 3600, (n % 3600) / 60, n % 60
}

// String renders the canonical 24-hour HH:MM:SS form.
func (c Clock) String() string {
	h, m, s := c.parts()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// HHMM renders the 24-hour HH:MM form.
func (c Clock) HHMM() string {
	h, m, _ := c.parts()
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Format12h renders hh:mm:ss AM/PM.
func (c Clock) Format12h() string {
	h, m, s := c.parts()
	return fmt.Sprintf("%02d:%02d:%02d %s", hour12(h), m, s, meridiem(h))
}

// Format12hShort renders hh:mm AM/PM.
func (c Clock) Format12hShort() string {
	h, m, _ := c.parts()
	return fmt.Sprintf("%02d:%02d %s", hour12(h), m, meridiem(h))
}

func hour12(h int) int {
	h %= 24
	if h%12 == 0 {
		return 12
	}
	return h % 12
}

func meridiem(h int) string {
	if h%24 < 12 {
		return "AM"
	}
	return "PM"
}

// Sub returns the duration c - o.
func (c Clock) Sub(o Clock) Duration {
	return Duration(c - o)
}

// Add returns c shifted by d without wrapping past midnight.
func (c Clock) Add(d Duration) Clock {
	return c + Clock(d)
}

// Valid reports whether c lies within a single day.
func (c Clock) Valid() bool {
	return c >= Midnight && c <= LastSecond
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
