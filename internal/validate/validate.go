// Package validate provides pure input validators for the booking flow.
//
// All functions operate on the raw text a user typed; callers are expected to
// re-prompt on failure rather than surface an error.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Year bounds accepted for booking dates.
const (
	MinYear = 2024
	MaxYear = 2030
)

var (
	dateRegex  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	clockRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(AM|PM)?$`)
	rifRegex   = regexp.MustCompile(`^[VJEGPN]-\d{8}-\d$`)
)

// MinLen reports whether the trimmed input has at least n characters.
func MinLen(s string, n int) bool {
	return len(strings.TrimSpace(s)) >= n
}

// Name validates a patient name (trimmed length >= 2).
func Name(s string) bool {
	return MinLen(s, 2)
}

// Date validates a booking date in DD/MM/YYYY form. The date must be a real
// calendar date within the allowed year range and not before today, where
// "today" is taken from now's location.
func Date(s string, now time.Time) bool {
	m := dateRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if day < 1 || day > 31 || month < 1 || month > 12 {
		return false
	}
	if year < MinYear || year > MaxYear {
		return false
	}

	// time.Date normalizes overflow (31/02 becomes 02/03 or 03/03), so a
	// round-trip mismatch means the calendar date does not exist.
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if d.Day() != day || d.Month() != time.Month(month) || d.Year() != year {
		return false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !d.Before(today)
}

// ClockTime validates a time of day in 12-hour ("10:30 AM") or 24-hour
// ("14:30") form. Matching is case-insensitive for the meridiem suffix.
func ClockTime(s string) bool {
	m := clockRegex.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return false
	}
	if m[3] != "" {
		return hour >= 1 && hour <= 12
	}
	return hour <= 23
}

// Amount validates a positive decimal amount and returns it normalized to two
// decimal places. ParseFloat also accepts "NaN" and "Inf" spellings, which are
// not amounts.
func Amount(s string) (string, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return "", false
	}
	return fmt.Sprintf("%.2f", v), true
}

// RIF validates a Venezuelan tax id and returns it uppercased. The accepted
// form is a prefix letter (V, J, E, G, P or N), eight digits and a check
// digit, dash-separated.
func RIF(s string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if !rifRegex.MatchString(normalized) {
		return "", false
	}
	return normalized, true
}
