package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultAvgDiningMinutes is assumed when a restaurant does not configure
// an average dining duration.
const DefaultAvgDiningMinutes = 90

// ServiceHours holds a day's opening window as "HH:MM" wall-clock strings.
type ServiceHours struct {
	Open  string
	Close string
}

func (h ServiceHours) Validate() error {
	open, err := parseClockTime(h.Open)
	if err != nil {
		return fmt.Errorf("%w: open time %q", ErrValidation, h.Open)
	}
	close, err := parseClockTime(h.Close)
	if err != nil {
		return fmt.Errorf("%w: close time %q", ErrValidation, h.Close)
	}
	if close <= open {
		return fmt.Errorf("%w: close time must be after open time", ErrValidation)
	}
	return nil
}

// Window resolves the hours onto a concrete date (UTC midnight-relative).
// ok is false when either time string does not parse.
func (h ServiceHours) Window(date time.Time) (open, close time.Time, ok bool) {
	openOffset, err := parseClockTime(h.Open)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	closeOffset, err := parseClockTime(h.Close)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(openOffset), day.Add(closeOffset), true
}

func parseClockTime(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// Capacity is what the availability engine needs from configuration.
type Capacity struct {
	TotalSeats       int
	AvgDiningMinutes int
}

type Restaurant struct {
	ID               string
	Name             string
	TotalSeats       int
	AvgDiningMinutes int
	Hours            map[time.Weekday]ServiceHours
	CreatedAt        time.Time
}

// HoursFor returns the service hours for a weekday; ok is false on days
// with no service.
func (r Restaurant) HoursFor(day time.Weekday) (ServiceHours, bool) {
	h, ok := r.Hours[day]
	return h, ok
}
