// Package timeslot normalizes free-text times of day into 24-hour hours and
// renders the hourly slot labels used by the scheduling grid.
package timeslot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// H, H:MM, each optionally followed by am/pm with or without a space.
var timePattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// NormalizeHour parses text such as "8:00 am", "2 PM" or "14:30" into an hour
// in [0,23]. Minutes are validated but otherwise ignored.
func NormalizeHour(text string) (int, error) {
	m := timePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseable, text)
	}

	hour, _ := strconv.Atoi(m[1])
	if m[2] != "" {
		if minute, _ := strconv.Atoi(m[2]); minute > 59 {
			return 0, fmt.Errorf("%w: %q: minute out of range", ErrUnparseable, text)
		}
	}

	switch meridiem := m[3]; {
	case meridiem == "":
		if hour > 23 {
			return 0, fmt.Errorf("%w: %q: hour out of range", ErrUnparseable, text)
		}
		return hour, nil
	case hour < 1 || hour > 12:
		return 0, fmt.Errorf("%w: %q: hour out of range for %s", ErrUnparseable, text, meridiem)
	case meridiem == "pm" && hour != 12:
		return hour + 12, nil
	case meridiem == "am" && hour == 12:
		return 0, nil
	default:
		return hour, nil
	}
}

// SlotLabel renders hour (0-23) as a 12-hour slot label, e.g. "8 AM", "12 PM".
func SlotLabel(hour int) string {
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d %s", h, meridiem)
}

// SlotLabels returns the labels for every hour in [from, to].
func SlotLabels(from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > 23 {
		to = 23
	}
	if from > to {
		return nil
	}
	out := make([]string, 0, to-from+1)
	for h := from; h <= to; h++ {
		out = append(out, SlotLabel(h))
	}
	return out
}
