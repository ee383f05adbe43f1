// Package worker runs the periodic reminder check.
package worker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"campuswal/internal/log"
)

// DefaultInterval matches the foreground check cadence.
const DefaultInterval = 5 * time.Second

// Processor is satisfied by *services.ReminderProcessor.
type Processor interface {
	ProcessDueReminders(ctx context.Context, now time.Time) (int, error)
}

// ReminderWorker checks for due reminders once on start, then on every tick
// and whenever Wake is called.
type ReminderWorker struct {
	processor Processor
	clock     clockwork.Clock
	interval  time.Duration
	wake      chan struct{}
	logger    *log.Logger
}

func NewReminderWorker(p Processor, clock clockwork.Clock, interval time.Duration, logger *log.Logger) *ReminderWorker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderWorker{
		processor: p,
		clock:     clock,
		interval:  interval,
		wake:      make(chan struct{}, 1),
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Wake requests an immediate check. Calls made while one is already pending
// collapse into it.
func (w *ReminderWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (w *ReminderWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Reminder worker started", "interval", w.interval.String())

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Reminder worker stopped", log.FieldOperation, log.OpShutdown)
			return nil
		case <-ticker.Chan():
			w.check(ctx)
		case <-w.wake:
			w.check(ctx)
		}
	}
}

func (w *ReminderWorker) check(ctx context.Context) {
	if _, err := w.processor.ProcessDueReminders(ctx, w.clock.Now()); err != nil {
		w.logger.ErrorContext(ctx, "Reminder check failed",
			log.NewFields().WithError(err).WithOperation(log.OpFire).ToSlice()...)
	}
}
