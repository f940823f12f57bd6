package experiment

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManualSchedulerAdvance(t *testing.T) {
	m := NewManualScheduler()
	calls := 0
	m.Start(200*time.Millisecond, func() { calls++ })

	if n := m.Advance(time.Second); n != 5 {
		t.Errorf("Advance(1s) made %d calls, want 5", n)
	}
	if n := m.Advance(100 * time.Millisecond); n != 0 {
		t.Errorf("Advance(100ms) made %d calls, want 0", n)
	}
	if n := m.Advance(100 * time.Millisecond); n != 1 {
		t.Errorf("second Advance(100ms) made %d calls, want 1", n)
	}
	if calls != 6 || m.Calls() != 6 {
		t.Errorf("calls = %d (scheduler counted %d), want 6", calls,
			m.Calls())
	}
}

func TestManualSchedulerCancelFromCallback(t *testing.T) {
	m := NewManualScheduler()
	calls := 0
	m.Start(time.Millisecond, func() {
		calls++
		if calls == 3 {
			m.Cancel()
		}
	})

	if n := m.Fire(10); n != 3 {
		t.Errorf("Fire(10) made %d calls, want 3", n)
	}
	if m.Active() {
		t.Error("scheduler still active after cancel")
	}
	if n := m.Advance(time.Second); n != 0 {
		t.Errorf("cancelled scheduler made %d calls", n)
	}
}

func TestManualSchedulerRestart(t *testing.T) {
	m := NewManualScheduler()
	first, second := 0, 0
	m.Start(time.Second, func() { first++ })
	m.Advance(500 * time.Millisecond)

	// Restarting replaces the function and the elapsed virtual time
	m.Start(time.Second, func() { second++ })
	m.Advance(500 * time.Millisecond)
	if first != 0 || second != 0 {
		t.Fatalf("calls = %d, %d; want none", first, second)
	}
	m.Advance(500 * time.Millisecond)
	if first != 0 || second != 1 {
		t.Errorf("calls = %d, %d; want 0, 1", first, second)
	}
}

func TestTickerSchedulerRunsUntilCancelled(t *testing.T) {
	s := NewTickerScheduler()
	var calls atomic.Int32
	reached := make(chan struct{})

	s.Start(time.Millisecond, func() {
		if calls.Add(1) == 3 {
			s.Cancel()
			close(reached)
		}
	})

	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		t.Fatal("ticker scheduler did not tick")
	}

	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 3 {
		t.Errorf("calls after cancel = %d, want 3", n)
	}
}

func TestTickerSchedulerDoesNotOverlap(t *testing.T) {
	s := NewTickerScheduler()
	defer s.Cancel()

	var running, overlaps, calls atomic.Int32
	s.Start(time.Millisecond, func() {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(3 * time.Millisecond)
		running.Add(-1)
		calls.Add(1)
	})

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if overlaps.Load() != 0 {
		t.Errorf("%d overlapping calls", overlaps.Load())
	}
}

func TestTickerSchedulerRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero interval")
		}
	}()
	NewTickerScheduler().Start(0, func() {})
}
