package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTimeFormat возвращается, когда строка не в формате "H:MM AM/PM"
var ErrInvalidTimeFormat = errors.New("invalid 12-hour time format")

var clock12Pattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s?([AaPp][Mm])$`)

// To24Hour переводит "9:00 AM" в "09:00".
// 12 AM -> 00, 12 PM -> 12.
func To24Hour(time12 string) (TimeString, error) {
	match := clock12Pattern.FindStringSubmatch(strings.TrimSpace(time12))
	if match == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, time12)
	}

	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, time12)
	}

	pm := strings.EqualFold(match[3], "PM")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case hour != 12 && pm:
		hour += 12
	}

	return NewTimeStringFromMinutes(hour*60 + minute)
}

// ParseClock принимает как "HH:MM", так и "H:MM AM/PM"
func ParseClock(s string) (TimeString, error) {
	if t, err := NewTimeStringFromString(s); err == nil {
		return t, nil
	}
	return To24Hour(s)
}

// Format12Hour форматирует время как "9:00 AM"
func (t TimeString) Format12Hour() string {
	m := t.Minutes()
	if m < 0 {
		return ""
	}

	hour, minute := m/60, m%60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}

	hour %= 12
	if hour == 0 {
		hour = 12
	}

	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}
