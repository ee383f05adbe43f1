package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campuswal/internal/log"
	"campuswal/internal/notify"
)

// ReminderProcessor fires the reminders of todos whose time has come.
type ReminderProcessor struct {
	store    TodoStore
	notifier notify.Notifier
	logger   *log.Logger
}

func NewReminderProcessor(store TodoStore, notifier notify.Notifier, logger *log.Logger) *ReminderProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderProcessor{store: store, notifier: notifier, logger: logger.WithComponent(log.ComponentReminder)}
}

// ProcessDueReminders fires every due todo once and returns how many fired.
//
// Each todo is marked notified before delivery, so a reminder is delivered at
// most once. The mark only applies while the todo is still pending at the
// fire time that was read; a todo completed or rescheduled in between is left
// alone. When marking fails the todo is skipped and stays due for the next
// check. A failed delivery is logged and not retried.
func (p *ReminderProcessor) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	todos, err := p.store.GetTodos(ctx)
	if err != nil {
		return 0, fmt.Errorf("load todos: %w", err)
	}

	fired := 0
	var errs []error
	for _, t := range todos {
		if !t.IsDue(now) {
			continue
		}
		marked, err := p.store.MarkNotified(ctx, t.ID, t.When)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark todo notified",
				log.NewFields().WithTodo(t.ID, t.Title, t.When.Time).WithError(err).WithOperation(log.OpFire).ToSlice()...)
			errs = append(errs, err)
			continue
		}
		if !marked {
			// Completed, rescheduled or removed since it was read.
			p.logger.DebugContext(ctx, "Todo changed before firing, skipped",
				log.FieldTodoID, int64(t.ID), log.FieldOperation, log.OpFire)
			continue
		}
		fired++

		if p.notifier == nil {
			continue
		}
		if err := p.notifier.Notify(ctx, notify.NewReminder(t, now)); err != nil {
			p.logger.WarnContext(ctx, "Reminder delivery failed",
				log.NewFields().WithTodo(t.ID, t.Title, t.When.Time).WithError(err).WithOperation(log.OpFire).ToSlice()...)
		}
	}

	if fired > 0 {
		p.logger.InfoContext(ctx, "Reminders fired", log.FieldCount, fired, log.FieldOperation, log.OpFire)
	}
	return fired, errors.Join(errs...)
}
