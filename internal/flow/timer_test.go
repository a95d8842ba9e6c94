package flow

import (
	"testing"
	"time"
)

func TestUserTimerSchedulesAndFires(t *testing.T) {
	timer := NewUserTimer()
	defer timer.Stop()

	fired := make(chan struct{})
	timer.ScheduleAfter("u1", 5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled function did not fire")
	}
}

func TestUserTimerReplacePending(t *testing.T) {
	timer := NewUserTimer()
	defer timer.Stop()

	ran := make(chan string, 2)
	timer.ScheduleAfter("u1", 10*time.Millisecond, func() { ran <- "first" })
	timer.ScheduleAfter("u1", 10*time.Millisecond, func() { ran <- "second" })

	select {
	case got := <-ran:
		if got != "second" {
			t.Fatalf("replaced timer fired, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("replacement timer did not fire")
	}

	select {
	case got := <-ran:
		t.Fatalf("stale timer fired: %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUserTimerCancel(t *testing.T) {
	timer := NewUserTimer()
	defer timer.Stop()

	ran := make(chan struct{}, 1)
	timer.ScheduleAfter("u1", 10*time.Millisecond, func() { ran <- struct{}{} })
	timer.Cancel("u1")

	select {
	case <-ran:
		t.Fatal("cancelled timer fired")
	case <-time.After(50 * time.Millisecond):
	}

	// cancelling an unknown key is harmless
	timer.Cancel("missing")
}
