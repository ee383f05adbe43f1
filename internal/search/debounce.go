package search

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDebounce is the inactivity period before a typed query is run.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs only the last of a burst of calls once the caller has been
// quiet for the configured delay.
type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration

	mu     sync.Mutex
	timer  clockwork.Timer
	cancel chan struct{}
	gen    uint64
}

func NewDebouncer(clock clockwork.Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger cancels any pending call and schedules fn after the delay.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()

	timer := d.clock.NewTimer(d.delay)
	cancel := make(chan struct{})
	d.timer, d.cancel = timer, cancel
	gen := d.gen

	go func() {
		select {
		case <-timer.Chan():
		case <-cancel:
			return
		}
		// The timer may have fired while Stop or Trigger held the lock.
		d.mu.Lock()
		current := d.gen == gen
		if current {
			d.timer, d.cancel = nil, nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	}()
}

// Stop cancels the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	d.gen++
	if d.timer == nil {
		return
	}
	d.timer.Stop()
	close(d.cancel)
	d.timer, d.cancel = nil, nil
}
