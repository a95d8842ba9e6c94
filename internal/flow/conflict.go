// Package flow provides booking availability checks against the calendar.
package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
)

// DefaultMinSeparation is the minimum distance between two appointment start
// times. A candidate closer than this to any existing event is a conflict.
const DefaultMinSeparation = 30 * time.Minute

// ParseDateTime combines a DD/MM/YYYY date and a 12-hour or 24-hour clock
// time into a single instant in the given location.
func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	dateParts := strings.Split(strings.TrimSpace(dateStr), "/")
	if len(dateParts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: want DD/MM/YYYY", dateStr)
	}
	day, err := strconv.Atoi(dateParts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day in %q: %w", dateStr, err)
	}
	month, err := strconv.Atoi(dateParts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month in %q: %w", dateStr, err)
	}
	year, err := strconv.Atoi(dateParts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year in %q: %w", dateStr, err)
	}

	hour, minute, err := parseClock(timeStr)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), nil
}

func parseClock(timeStr string) (hour, minute int, err error) {
	upper := strings.ToUpper(strings.TrimSpace(timeStr))
	isPM := strings.Contains(upper, "PM")
	isAM := strings.Contains(upper, "AM")

	clock := strings.TrimSpace(strings.NewReplacer("AM", "", "PM", "").Replace(upper))
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: want H:MM", timeStr)
	}
	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", timeStr, err)
	}
	minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", timeStr, err)
	}

	if isPM && hour != 12 {
		hour += 12
	}
	if isAM && hour == 12 {
		hour = 0
	}
	return hour, minute, nil
}

// HasConflict reports whether any existing event starts within minSeparation
// of the candidate instant, in either direction.
func HasConflict(candidate time.Time, events []models.CalendarEvent, minSeparation time.Duration) bool {
	for _, event := range events {
		diff := event.Start.Sub(candidate)
		if diff < 0 {
			diff = -diff
		}
		if diff < minSeparation {
			return true
		}
	}
	return false
}
