package experiment

import (
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the default period between two training ticks
const DefaultInterval = 200 * time.Millisecond

// Scheduler calls a function periodically until cancelled.
//
// Implementations never overlap two calls of the scheduled function, and
// Cancel must not block, so that the scheduled function itself may
// cancel its Scheduler. Calling Start on an active Scheduler replaces
// the scheduled function.
type Scheduler interface {
	Start(interval time.Duration, fn func())
	Cancel()
}

// TickerScheduler is a Scheduler which calls its function on a wall-clock
// time.Ticker from a single goroutine. Ticks which arrive while the
// function is still running are dropped.
type TickerScheduler struct {
	mu   sync.Mutex
	stop chan struct{}
}

// NewTickerScheduler returns a new, inactive TickerScheduler
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Start calls fn every interval until Cancel is called
func (t *TickerScheduler) Start(interval time.Duration, fn func()) {
	if interval <= 0 {
		panic(fmt.Sprintf("start: interval must be positive, got %v",
			interval))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel()

	stop := make(chan struct{})
	t.stop = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			// Cancel may race with a tick which has already fired
			select {
			case <-stop:
				return
			default:
				fn()
			}
		}
	}()
}

// Cancel stops calling the scheduled function. A call in progress is
// allowed to finish.
func (t *TickerScheduler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel()
}

func (t *TickerScheduler) cancel() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// ManualScheduler is a Scheduler driven by a virtual clock. Time only
// passes when Advance is called, and scheduled calls run synchronously
// on the caller's goroutine, which makes training runs deterministic in
// tests and allows headless runs to go as fast as possible.
type ManualScheduler struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	active   bool
	pending  time.Duration // Virtual time since the last call
	calls    int
}

// NewManualScheduler returns a new, inactive ManualScheduler
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Start schedules fn every interval of virtual time
func (m *ManualScheduler) Start(interval time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.interval = interval
	m.fn = fn
	m.active = true
	m.pending = 0
}

// Cancel stops calling the scheduled function
func (m *ManualScheduler) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

// Active returns whether a function is scheduled
func (m *ManualScheduler) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Calls returns the total number of scheduled calls made
func (m *ManualScheduler) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Advance moves the virtual clock forward by d, calling the scheduled
// function once for every full interval which elapses. Advance returns
// early if the function cancels the Scheduler, and returns the number
// of calls made.
func (m *ManualScheduler) Advance(d time.Duration) int {
	m.mu.Lock()
	m.pending += d
	m.mu.Unlock()

	calls := 0
	for {
		fn, ok := m.next(true)
		if !ok {
			return calls
		}
		fn()
		calls++
	}
}

// Fire calls the scheduled function n times, regardless of the virtual
// clock. Fire returns early if the function cancels the Scheduler, and
// returns the number of calls made.
func (m *ManualScheduler) Fire(n int) int {
	calls := 0
	for ; calls < n; calls++ {
		fn, ok := m.next(false)
		if !ok {
			break
		}
		fn()
	}
	return calls
}

// next returns the scheduled function if it is due. The lock is not held
// while the function runs, since it may cancel the Scheduler.
func (m *ManualScheduler) next(timed bool) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return nil, false
	}
	if timed {
		if m.interval <= 0 || m.pending < m.interval {
			return nil, false
		}
		m.pending -= m.interval
	}
	m.calls++
	return m.fn, true
}
