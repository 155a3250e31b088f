// Package clock converts the two clinic wire formats, "YYYY-MM-DD" dates
// and "HH:MM AM/PM" appointment times, at the boundary. Everything past
// ingestion works in minutes since midnight or time.Time.
package clock

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// MinuteOfDay parses a 12-hour "HH:MM AM/PM" string into minutes since
// midnight. Hour "12" maps to 0 before the PM shift, so "12:30 AM" is 30
// and "12:30 PM" is 750.
func MinuteOfDay(s string) (int, error) {
	timePart, modifier, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return 0, fmt.Errorf("time %q missing AM/PM modifier", s)
	}
	hh, mm, ok := strings.Cut(timePart, ":")
	if !ok {
		return 0, fmt.Errorf("time %q missing minutes", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 1 || hour > 12 {
		return 0, fmt.Errorf("time %q has invalid hour", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q has invalid minute", s)
	}
	if hour == 12 {
		hour = 0
	}
	switch strings.ToUpper(modifier) {
	case "AM":
	case "PM":
		hour += 12
	default:
		return 0, fmt.Errorf("time %q has invalid modifier", s)
	}
	return hour*60 + minute, nil
}

// Hour24 returns the 24-hour hour component of a 12-hour time string.
func Hour24(s string) (int, error) {
	m, err := MinuteOfDay(s)
	if err != nil {
		return 0, err
	}
	return m / 60, nil
}

// FormatMinute renders minutes since midnight back to "HH:MM AM/PM".
func FormatMinute(m int) string {
	m = ((m % 1440) + 1440) % 1440
	hour := m / 60
	minute := m % 60
	modifier := "AM"
	if hour >= 12 {
		modifier = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, minute, modifier)
}

// ParseDate parses a "YYYY-MM-DD" date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// Instant combines a date and a 12-hour time string into one UTC instant.
func Instant(date, timeOfDay string) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	m, err := MinuteOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(m) * time.Minute), nil
}

// LeadDays returns ceil((date midnight - now's midnight) / 1 day): 0 for
// same-day, 1 for tomorrow, negative for past dates.
func LeadDays(date string, now time.Time) (int, error) {
	day, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	nowUTC := now.UTC()
	today := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	diff := day.Sub(today)
	return int(math.Ceil(diff.Hours() / 24)), nil
}

// HoursUntil returns the fractional hours from now until the appointment
// instant. Used for reschedule eligibility.
func HoursUntil(date, timeOfDay string, now time.Time) (float64, error) {
	at, err := Instant(date, timeOfDay)
	if err != nil {
		return 0, err
	}
	return at.Sub(now.UTC()).Hours(), nil
}

// Weekday returns the day of week for a "YYYY-MM-DD" date.
func Weekday(date string) (time.Weekday, error) {
	day, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return day.Weekday(), nil
}
