// Package timetable parses departure times and filters buses by a time-of-day window.
package timetable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ukydev/bus-tracker/internal/models"
)

// ErrInvalidTime is returned when a time string does not match its expected layout.
var ErrInvalidTime = errors.New("invalid time format")

const (
	clockLayout     = "15:04"   // search input
	departureLayout = "3:04 PM" // stored on bus documents
)

// TimeOfDay is a number of minutes after midnight. Dates are ignored.
type TimeOfDay int

// ParseClock parses a 24-hour "HH:MM" time. Hours and minutes may have one digit.
func ParseClock(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	if _, padded, ok := splitHour(value); ok {
		value = padded
	}
	return parse(clockLayout, value)
}

// ParseDeparture parses a 12-hour "hh:mm AM/PM" time, case-insensitively.
// The hour must be 1 through 12.
func ParseDeparture(value string) (TimeOfDay, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	hour, padded, ok := splitHour(value)
	if !ok || hour < 1 || hour > 12 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return parse(departureLayout, padded)
}

// splitHour returns the hour digits of "H:M..." and value with a one-digit
// minute zero-padded.
func splitHour(value string) (int, string, bool) {
	hour, rest, found := strings.Cut(value, ":")
	if !found || !allDigits(hour) || len(hour) > 2 {
		return 0, "", false
	}
	n, err := strconv.Atoi(hour)
	if err != nil {
		return 0, "", false
	}
	minuteDigits := len(rest) - len(strings.TrimLeft(rest, "0123456789"))
	if minuteDigits == 1 {
		rest = "0" + rest
	}
	return n, hour + ":" + rest, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parse(layout, value string) (TimeOfDay, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// String formats the time as 24-hour "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Window is an inclusive time-of-day range. A window whose From is after To
// does not wrap past midnight and contains nothing.
type Window struct {
	From TimeOfDay
	To   TimeOfDay
}

// NewWindow parses two 24-hour times into a window.
func NewWindow(from, to string) (Window, error) {
	f, err := ParseClock(from)
	if err != nil {
		return Window{}, err
	}
	t, err := ParseClock(to)
	if err != nil {
		return Window{}, err
	}
	return Window{From: f, To: t}, nil
}

// Contains reports whether t lies within the window, bounds included.
func (w Window) Contains(t TimeOfDay) bool {
	return w.From <= t && t <= w.To
}

// MalformedFunc is called for every bus whose departure time cannot be parsed.
type MalformedFunc func(bus models.BusSummary, err error)

// Filter returns the buses departing inside the window, preserving order.
// Buses with an unparseable time are reported to onMalformed and skipped.
func Filter(buses []models.BusSummary, w Window, onMalformed MalformedFunc) []models.BusSummary {
	results := make([]models.BusSummary, 0, len(buses))
	for _, bus := range buses {
		departure, err := ParseDeparture(bus.Time)
		if err != nil {
			if onMalformed != nil {
				onMalformed(bus, err)
			}
			continue
		}
		if w.Contains(departure) {
			results = append(results, bus)
		}
	}
	return results
}
