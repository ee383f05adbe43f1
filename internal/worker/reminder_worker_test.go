package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type countingProcessor struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	seen  chan struct{}
}

func newCountingProcessor() *countingProcessor {
	return &countingProcessor{seen: make(chan struct{}, 16)}
}

func (p *countingProcessor) ProcessDueReminders(_ context.Context, now time.Time) (int, error) {
	p.mu.Lock()
	p.calls = append(p.calls, now)
	p.mu.Unlock()
	p.seen <- struct{}{}
	return 0, p.err
}

func (p *countingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func waitCheck(t *testing.T, p *countingProcessor) {
	t.Helper()
	select {
	case <-p.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reminder check")
	}
}

func start(t *testing.T, w *ReminderWorker) (cancel func(), done chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done = make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return cancel, done
}

func TestReminderWorkerChecksOnStartAndTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := newCountingProcessor()
	w := NewReminderWorker(p, clock, 5*time.Second, nil)
	cancel, done := start(t, w)
	defer cancel()

	waitCheck(t, p)
	clock.BlockUntil(1)

	clock.Advance(4 * time.Second)
	select {
	case <-p.seen:
		t.Fatal("no check expected before the interval elapses")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Second)
	waitCheck(t, p)
	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	waitCheck(t, p)

	if got := p.count(); got != 3 {
		t.Fatalf("expected 3 checks, got %d", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestReminderWorkerWake(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := newCountingProcessor()
	w := NewReminderWorker(p, clock, time.Hour, nil)
	cancel, _ := start(t, w)
	defer cancel()

	waitCheck(t, p)
	w.Wake()
	waitCheck(t, p)

	if got := p.count(); got != 2 {
		t.Fatalf("expected 2 checks, got %d", got)
	}
}

func TestReminderWorkerWakeCollapses(t *testing.T) {
	w := NewReminderWorker(newCountingProcessor(), clockwork.NewFakeClock(), time.Hour, nil)
	w.Wake()
	w.Wake()
	w.Wake()
	if len(w.wake) != 1 {
		t.Fatalf("pending wakes should collapse into one, got %d", len(w.wake))
	}
}

func TestReminderWorkerKeepsRunningAfterError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := newCountingProcessor()
	p.err = errors.New("storage down")
	w := NewReminderWorker(p, clock, time.Second, nil)
	cancel, done := start(t, w)

	waitCheck(t, p)
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitCheck(t, p)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestReminderWorkerPassesClockTime(t *testing.T) {
	at := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(at)
	p := newCountingProcessor()
	cancel, _ := start(t, NewReminderWorker(p, clock, time.Hour, nil))
	defer cancel()

	waitCheck(t, p)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.calls[0].Equal(at) {
		t.Fatalf("expected check at %v, got %v", at, p.calls[0])
	}
}
