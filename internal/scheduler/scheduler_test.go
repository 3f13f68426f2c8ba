package scheduler

import (
	"testing"
	"time"
)

func TestFirstFetchIsDueImmediately(t *testing.T) {
	s, err := New(5 * time.Second)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !s.Due() {
		t.Fatalf("first fetch must be due before any frame")
	}
}

func TestCycle(t *testing.T) {
	s, _ := New(time.Second)
	if !s.Begin() || s.State() != Fetching {
		t.Fatalf("begin failed, state %s", s.State())
	}
	if s.Begin() {
		t.Fatalf("a second fetch must not start while one is outstanding")
	}

	s.Advance(10 * time.Second)
	if s.Elapsed() != 0 || s.Due() {
		t.Fatalf("timer advanced while fetching")
	}

	s.Complete()
	if s.State() != Idle {
		t.Fatalf("state = %s, want idle", s.State())
	}
	s.Advance(600 * time.Millisecond)
	if s.Due() {
		t.Fatalf("due too early")
	}
	s.Advance(400 * time.Millisecond)
	if !s.Due() {
		t.Fatalf("expected due after a full period")
	}
	if !s.Begin() || s.Cycles() != 2 {
		t.Fatalf("cycles = %d", s.Cycles())
	}
}

func TestStopIsTerminal(t *testing.T) {
	s, _ := New(time.Second)
	s.Begin()
	s.Stop()
	s.Complete()
	s.Advance(time.Hour)
	if s.State() != Stopped || s.Due() || s.Begin() {
		t.Fatalf("stopped scheduler resumed: %s", s.State())
	}
}

func TestNewRejectsNonPositivePeriod(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("expected error")
	}
}
