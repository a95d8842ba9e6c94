package validate

import (
	"testing"
	"time"
)

// fixed reference date for deterministic "not in the past" checks
var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestDate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"20/12/2030", true},
		{"15/06/2025", true},  // today is allowed
		{"16/06/2025", true},
		{"14/06/2025", false}, // yesterday
		{"31/02/2025", false}, // not a real calendar date
		{"29/02/2025", false}, // 2025 is not a leap year
		{"15/12/2019", false}, // year below range
		{"01/01/2031", false}, // year above range
		{"15/13/2025", false},
		{"00/12/2025", false},
		{"2025-12-15", false},
		{"15/12", false},
		{"", false},
	}
	for _, c := range cases {
		if got := Date(c.in, testNow); got != c.want {
			t.Errorf("Date(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestClockTime(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"10:30 AM", true},
		{"10:30AM", true},
		{"10:30 pm", true},
		{"14:30", true},
		{"0:05", true},
		{"23:59", true},
		{"12:00 PM", true},
		{"13:00 PM", false}, // 12-hour clock caps at 12
		{"0:30 AM", false},
		{"24:00", false},
		{"10:60", false},
		{"10", false},
		{"mediodia", false},
	}
	for _, c := range cases {
		if got := ClockTime(c.in); got != c.want {
			t.Errorf("ClockTime(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"50", "50.00", true},
		{"50.5", "50.50", true},
		{" 100 ", "100.00", true},
		{"0.01", "0.01", true},
		{"0", "", false},
		{"-10", "", false},
		{"NaN", "", false},
		{"nan", "", false},
		{"+Inf", "", false},
		{"Infinity", "", false},
		{"-Inf", "", false},
		{"gratis", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := Amount(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("Amount(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestRIF(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"J-12345678-9", "J-12345678-9", true},
		{"v-98765432-1", "V-98765432-1", true},
		{" G-00000000-0 ", "G-00000000-0", true},
		{"J-1234-9", "", false},
		{"X-12345678-9", "", false}, // invalid prefix letter
		{"J-123456789", "", false},
		{"J12345678-9", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := RIF(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("RIF(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestNameAndMinLen(t *testing.T) {
	if Name("a") {
		t.Error("single-character name should be rejected")
	}
	if !Name("Maria Gomez") {
		t.Error("valid name rejected")
	}
	if MinLen("  ab  ", 3) {
		t.Error("trimmed length should be used")
	}
	if !MinLen("abc", 3) {
		t.Error("exact minimum length should pass")
	}
}
